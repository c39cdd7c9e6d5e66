// Package http exposes the conversation engine over a small JSON API, so the
// bot can be driven by scripts, tests or another chat frontend.
package http
