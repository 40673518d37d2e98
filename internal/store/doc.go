// Package store keeps numerus build history in SQLite and serves previously
// emitted IR back as a cache.
//
// Every `numerus build --db` appends one row to the builds table. A row is
// keyed by a UUIDv7 id and stamped with a seq from a logical clock that
// resumes from MAX(seq) when the database is reopened, so history order is
// independent of wall time.
//
// # Caching
//
// cache_key is ir.CacheKey over the source hash, target and print flag. The
// newest build for a key is a cache hit as long as its ir_version and
// compiler_version match the running binary.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All queries order by seq ASC (or DESC for "latest"), then id COLLATE BINARY.
package store
