/*
Package session implements the per-user Session Store of the conversation engine.

The Manager guarantees that a user's events are applied one at a time: every
read-modify-write of a Session runs under that user's lock, while different
users never contend. Locks are reference counted and garbage collected, and an
optional DistributedLocker extends the guarantee across replicas.

The Manager also memoizes the user's catalog account name (resolved once per
session through an AccountResolver) and evicts sessions idle for longer than
the configured timeout, either lazily on the next event or through a Sweeper.
*/
package session
