// Package model defines shared data types used across the market data recorder.
//
// Conventions:
//   - Prices and sizes: float64 in the product's quote/base currency
//   - Timestamps: time.Time in transit, int64 microseconds since epoch in rows
package model
