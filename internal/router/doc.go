// Package router implements the Message Router component.
//
// The router consumes raw feed messages from the Subscriber, decodes
// matches-channel trades, and hands them to the writers through a
// growable buffer so a slow database never backpressures the websocket
// read loop.
package router
