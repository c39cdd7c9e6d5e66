package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"
	"github.com/springjools/ombibot/internal/config"
	"github.com/springjools/ombibot/internal/presentation/tui"
	"github.com/springjools/ombibot/pkg/adapters/ombi"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/menu"
)

// LookupOptions describes one operator query against the catalog.
type LookupOptions struct {
	Query       string
	Contributor bool   // search by actor instead of title
	ID          string // show one item's detail
	Similar     bool   // with ID: list similar items instead
	Out         io.Writer
	// TTY renders markdown and colour; otherwise output is tab-separated.
	TTY bool
}

// Lookup runs a catalog query the way the bot would and prints the result.
func Lookup(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts LookupOptions) error {
	if !cfg.HasCatalog() {
		return errors.New("server and apiKey must be configured")
	}
	cd, err := cfg.Codec()
	if err != nil {
		return err
	}
	client, err := ombi.NewClient(
		ombi.Endpoint(cfg.Server, cfg.Port, cfg.BaseURL),
		cfg.APIKey,
		ombi.WithTimeout(cfg.RequestTimeout),
		ombi.WithLanguage(cfg.LanguageCode),
		ombi.WithCodec(cd),
		ombi.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	switch {
	case opts.ID != "" && opts.Similar:
		items, err := client.FindSimilar(ctx, domain.ItemID(opts.ID))
		if err != nil {
			return fmt.Errorf("similar lookup failed: %s: %w", domain.Reason(err), err)
		}
		return printResults(opts, menu.SimilarHeader(len(items)), items)

	case opts.ID != "":
		item, err := client.FetchDetail(ctx, domain.ItemID(opts.ID))
		if err != nil {
			return fmt.Errorf("detail lookup failed: %s: %w", domain.Reason(err), err)
		}
		return printDetail(opts, item)

	default:
		query := strings.TrimSpace(opts.Query)
		if query == "" {
			return errors.New("a search query or --id is required")
		}
		search := client.SearchByTitle
		if opts.Contributor {
			search = client.SearchByContributor
		}
		items, err := search(ctx, query)
		if err != nil {
			return fmt.Errorf("search failed: %s: %w", domain.Reason(err), err)
		}
		return printResults(opts, menu.ResultsHeader(len(items), query), items)
	}
}

func printResults(opts LookupOptions, header string, items []domain.CatalogItem) error {
	if !opts.TTY {
		_, err := io.WriteString(opts.Out, tui.PlainResults(termenv.Ascii, items))
		return err
	}
	return printMarkdown(opts.Out, tui.ResultsMarkdown(header, items))
}

func printDetail(opts LookupOptions, item domain.CatalogItem) error {
	if !opts.TTY {
		_, err := fmt.Fprintf(opts.Out, "%s\n\nStatus: %s\n", menu.DetailText(item), item.Availability)
		return err
	}
	return printMarkdown(opts.Out, tui.DetailMarkdown(item))
}

func printMarkdown(w io.Writer, md string) error {
	render, err := tui.NewRenderer()
	if err != nil {
		return err
	}
	out, err := render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
