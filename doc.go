/*
Package ombibot is a chat bot that lets users search an Ombi media server and
request movies, driven almost entirely by buttons.

# Concept

Every user owns a small conversation state machine. Typing a title (or an
actor's name) runs a search; the results come back as one button per movie.
Pressing a movie shows its rating, release date and overview, with buttons to
request it, list similar movies or go back. Requests are filed under the
user's Ombi account, looked up from a static mapping.

Buttons carry short action tokens ("0" for movie search, "4" for back, a bare
id for an item, "1-<id>" for similar items), so the whole conversation can be
replayed from plain events.

# Layout

  - pkg/codec: action token encoding and decoding.
  - pkg/menu: screens and button menus for each step.
  - pkg/session: per-user sessions, locking and idle eviction.
  - internal/runtime: the conversation engine and its transition table.
  - pkg/runner: ordered per-user dispatch of inbound events.
  - pkg/adapters: Ombi, Discord, the terminal console, the HTTP bridge, Redis
    and account mappings.
  - cmd/ombibot: the command line.

# Usage

	ombibot run --config config.json     # Discord bot + HTTP bridge
	ombibot serve --addr :8080           # HTTP bridge only
	ombibot lookup inception             # search from the terminal
	ombibot console                      # converse with the bot in the terminal

The HTTP bridge accepts the same events a chat channel produces:

	curl -s localhost:8080/v1/events -d '{"kind":"text","user_id":"42","text":"/start"}'
*/
package ombibot
