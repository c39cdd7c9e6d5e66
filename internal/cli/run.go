package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/springjools/ombibot/internal/config"
	"github.com/springjools/ombibot/pkg/adapters/discord"
	bridge "github.com/springjools/ombibot/pkg/adapters/http"
	"github.com/springjools/ombibot/pkg/runner"
	"github.com/springjools/ombibot/pkg/session"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// RunOptions selects what a long-running process serves.
type RunOptions struct {
	// Bot connects the Discord channel; without it only the HTTP bridge runs.
	Bot     bool
	Version string
	Out     io.Writer
	// Ready is called with the bridge's listen address once it accepts connections.
	Ready func(addr string)
}

// Run serves the bot until ctx is done. The channel, HTTP bridge, sweeper and
// dispatcher run under one errgroup: the first failure stops them all.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts RunOptions) error {
	if err := cfg.Validate(opts.Bot); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	var (
		channel    *discord.Channel
		runnerOpts []runner.Option
	)
	if opts.Bot {
		cd, err := cfg.Codec()
		if err != nil {
			return err
		}
		channel, err = discord.New(cfg.BotToken,
			discord.WithCodec(cd),
			discord.WithAllowFrom(cfg.Discord.AllowFrom...),
			discord.WithLogger(logger.With("component", "discord")),
		)
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, runner.WithMessenger(discord.Name, channel))
	}

	app, err := Build(cfg, logger, runnerOpts...)
	if err != nil {
		return err
	}
	defer app.Close()

	handler, err := bridge.NewHandler(app.Runner,
		bridge.WithSessions(app.Manager),
		bridge.WithMetricsHandler(app.Metrics.Handler()),
		bridge.WithVersion(opts.Version),
		bridge.WithLogger(logger.With("component", "http")),
	)
	if err != nil {
		return err
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		return err
	}

	if channel != nil {
		if err := channel.Start(ctx); err != nil {
			return err
		}
		printSystemMessage(opts.Out, "Discord bot connected")
	}

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		if channel != nil {
			channel.Stop(context.Background())
		}
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		printSystemMessage(opts.Out, "HTTP bridge listening on %s", ln.Addr())
		if opts.Ready != nil {
			opts.Ready(ln.Addr().String())
		}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http bridge: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		return nil
	})

	g.Go(func() error {
		return app.WatchAccounts(gctx)
	})

	g.Go(func() error {
		return session.NewSweeper(app.Manager, schedule, logger.With("component", "sweeper")).Run(gctx)
	})

	if channel != nil {
		g.Go(func() error {
			return app.Runner.Run(gctx, channel.Events())
		})
		g.Go(func() error {
			<-gctx.Done()
			return channel.Stop(context.Background())
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.Runner.Close(drainCtx)
		})
	}

	err = g.Wait()
	printSystemMessage(opts.Out, "Stopped")
	return err
}
