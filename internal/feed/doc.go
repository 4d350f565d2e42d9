// Package feed implements the Coinbase Pro websocket feed subscriber.
//
// The Subscriber:
//   - Maintains one websocket connection to the feed
//   - Subscribes the matches and heartbeat channels for configured products
//   - Detects missed trades via per-product trade ID continuity
//   - Reconnects with exponential backoff and re-subscribes
//   - Forwards raw data messages to the Message Router
package feed
