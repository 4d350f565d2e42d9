package exchange

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwall/serenity-mdrecorder/internal/model"
)

// Product describes a trading pair.
type Product struct {
	ID             string `json:"id"`
	BaseCurrency   string `json:"base_currency"`
	QuoteCurrency  string `json:"quote_currency"`
	QuoteIncrement string `json:"quote_increment"`
	BaseMinSize    string `json:"base_min_size"`
	Status         string `json:"status"`
}

// Ticker is the wire format of a product ticker response. Numeric
// fields arrive as decimal strings.
type Ticker struct {
	TradeID int64  `json:"trade_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Bid     string `json:"bid"`
	Ask     string `json:"ask"`
	Volume  string `json:"volume"`
	Time    string `json:"time"`
}

// Snap converts the wire ticker into a snapshot for productID, stamped
// with snappedAt.
func (tk *Ticker) Snap(productID string, snappedAt time.Time) (model.TickerSnap, error) {
	price, err := strconv.ParseFloat(tk.Price, 64)
	if err != nil {
		return model.TickerSnap{}, fmt.Errorf("parse price %q: %w", tk.Price, err)
	}
	size, err := strconv.ParseFloat(tk.Size, 64)
	if err != nil {
		return model.TickerSnap{}, fmt.Errorf("parse size %q: %w", tk.Size, err)
	}
	bid, err := strconv.ParseFloat(tk.Bid, 64)
	if err != nil {
		return model.TickerSnap{}, fmt.Errorf("parse bid %q: %w", tk.Bid, err)
	}
	ask, err := strconv.ParseFloat(tk.Ask, 64)
	if err != nil {
		return model.TickerSnap{}, fmt.Errorf("parse ask %q: %w", tk.Ask, err)
	}
	volume, err := strconv.ParseFloat(tk.Volume, 64)
	if err != nil {
		return model.TickerSnap{}, fmt.Errorf("parse volume %q: %w", tk.Volume, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, tk.Time)
	if err != nil {
		return model.TickerSnap{}, fmt.Errorf("parse time %q: %w", tk.Time, err)
	}

	return model.TickerSnap{
		ProductID: productID,
		TradeID:   tk.TradeID,
		Price:     price,
		Size:      size,
		Bid:       bid,
		Ask:       ask,
		Volume:    volume,
		Time:      ts,
		SnappedAt: snappedAt,
	}, nil
}
