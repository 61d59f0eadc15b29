package engine

import (
	. "skoll/internal/common"

	"github.com/shopspring/decimal"
)

// RestingOrder is a point in time copy of an order sat in the book.
type RestingOrder struct {
	ID        string
	Side      Side
	Price     decimal.Decimal
	Remaining uint64
	Total     uint64
	Sequence  uint64
}

type Snapshot struct {
	Instrument Instrument
	Bids       []RestingOrder // Highest price first
	Asks       []RestingOrder // Lowest price first
}

func (s Snapshot) Empty() bool {
	return len(s.Bids) == 0 && len(s.Asks) == 0
}

// Level aggregates the resting orders at one price.
type Level struct {
	Price    decimal.Decimal
	Quantity uint64
	Orders   int
}

// Levels folds a best first order list into price levels, keeping order.
func Levels(orders []RestingOrder) []Level {
	var levels []Level
	for _, order := range orders {
		n := len(levels)
		if n > 0 && levels[n-1].Price.Equal(order.Price) {
			levels[n-1].Quantity += order.Remaining
			levels[n-1].Orders++
			continue
		}
		levels = append(levels, Level{
			Price:    order.Price,
			Quantity: order.Remaining,
			Orders:   1,
		})
	}
	return levels
}

type BookStats struct {
	Instrument   Instrument
	BuyOrders    int
	SellOrders   int
	BuyQuantity  uint64
	SellQuantity uint64
	Halted       bool
}

func restingOrders(orders []*Order) []RestingOrder {
	out := make([]RestingOrder, len(orders))
	for i, order := range orders {
		out[i] = RestingOrder{
			ID:        order.ID,
			Side:      order.Side,
			Price:     order.Price,
			Remaining: order.Remaining.Get(),
			Total:     order.Total,
			Sequence:  order.Sequence,
		}
	}
	return out
}
