// Package writer implements the batch writers that drain the router
// buffers.
//
// Writers:
//   - Journal writer (daily binary journal on local disk)
//   - Trade writer (Postgres trades table)
//
// Both writers are append-only. The journal writer is the recovery
// path: the uploader replays its files into the tickstore, so it must
// keep up with the feed even when the database falls behind.
package writer
