/*
Package runner implements the dispatch loop between messaging channels and the
conversation engine.

Inbound events are queued on a per-user lane: one goroutine and FIFO per active
user, so a user's events are handled in arrival order while different users
proceed concurrently. Lanes retire when idle and drain on shutdown. Effects
produced by the handler are delivered through the Messenger registered for the
event's channel.

# Usage

	r := runner.New(engine,
		runner.WithMessenger("discord", discordChannel),
		runner.WithLogger(logger),
	)
	defer r.Close(context.Background())

	if err := r.Run(ctx, discordChannel.Events()); err != nil {
		log.Fatal(err)
	}
*/
package runner
