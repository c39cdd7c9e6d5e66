/*
Package runtime implements the conversation engine: a per-user finite-state
machine driven by button presses and free text.

Each inbound event is handled under the sender's session lock. Callback tokens
are decoded with the action codec and dispatched through a table keyed on
(state, token variant); anything not in the table re-renders the current
prompt. Catalog failures are answered in-band and never escape Handle.
*/
package runtime
