// Package poller periodically snapshots product tickers via the REST
// API. Each cycle fans out over the configured products with bounded
// concurrency; a failed snap is logged and counted, never fatal.
package poller
