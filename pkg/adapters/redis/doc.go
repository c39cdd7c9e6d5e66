// Package redis provides Redis-backed adapters: a distributed per-user lock
// for running several bot replicas, and an account resolver reading a hash.
package redis
