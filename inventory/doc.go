// Package inventory serves the latest inventory snapshot through a single-entry
// freshness cache and exposes the paginated snapshot history.
//
// # Overview
//
// Cache holds at most one entry: the most recent snapshot together with the time it was
// cached. An entry is fresh while now - CachedAt < TTL (60 seconds by default).
//
//   - GetLatest returns a fresh entry with Cached=true without touching the database.
//     Otherwise it reads the newest snapshot through the LatestSource, stores it and
//     returns it with Cached=false.
//   - Update overwrites the entry. The ingestion path calls it after every insert so
//     the next read is served from memory.
//   - Invalidate clears the entry.
//
// # Concurrency
//
// Handlers run on their own goroutines. The entry lives in a sturdyc-backed store (see
// internal/cacheinfra) and concurrent misses share one database read through
// singleflight. Every Update and Invalidate bumps a generation counter; a read-through
// only stores its result when the generation it started under is still current, so a
// slow database read never overwrites a newer write-through or revives an invalidated
// entry.
//
// # Errors
//
// An empty table yields apperr.NotFound("No inventory data found"). Any other read
// failure is returned as an apperr upstream failure and leaves the cache untouched.
package inventory
