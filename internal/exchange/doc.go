// Package exchange provides a client for the Coinbase Pro REST API.
//
// Only public market-data endpoints are used; no authentication is
// required. Outbound calls pass a shared rate limiter and a circuit
// breaker so a flapping API cannot drown the poller in retries.
package exchange
