/*
Package ports defines the driven ports (interfaces) of the ombibot engine.

These interfaces decouple the conversation engine from concrete catalog
services, messaging channels and session backends.

# Key Interfaces

  - CatalogClient: searches the media catalog and submits requests.
  - Messenger: delivers outbound effects to a messaging channel.
  - AccountResolver: maps external user ids to catalog account names.
  - SessionStore: keeps live sessions (in memory by default).
  - DistributedLocker: serializes a user's events across replicas.
*/
package ports
