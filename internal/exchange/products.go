package exchange

import (
	"context"
	"fmt"
)

// GetProducts fetches all trading pairs.
func (c *Client) GetProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return products, nil
}

// GetProductTicker fetches the latest ticker for productID.
func (c *Client) GetProductTicker(ctx context.Context, productID string) (*Ticker, error) {
	var tk Ticker
	path := "/products/" + productID + "/ticker"
	if err := c.get(ctx, path, nil, &tk); err != nil {
		return nil, fmt.Errorf("get ticker %s: %w", productID, err)
	}
	return &tk, nil
}
