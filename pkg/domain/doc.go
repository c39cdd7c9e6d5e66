/*
Package domain contains the core domain models of the ombibot conversation engine.

It defines the entities the engine reasons about: the per-user Session and its
State, normalized CatalogItem records, rendered Menus, and the inbound Events and
outbound Effects exchanged with a messaging channel. The package is kept pure and
free of I/O so that every adapter (Discord, HTTP bridge, Ombi, Redis) can share it.

# Key Entities

  - Session: per-user conversational context (state, last rendered menu, account).
  - State: one of the six conversation states; Entry is initial.
  - CatalogItem: a catalog record with derived Availability and optional Detail.
  - Menu / Screen: ordered rows of labeled buttons, plus the text shown with them.
  - Event / Effect: transport-agnostic inbound and outbound messages.
*/
package domain
