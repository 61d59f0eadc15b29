package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID         string          // Order tracked uuid
	Instrument Instrument      // Specific asset identifier
	Side       Side            // Order side
	Price      decimal.Decimal // Limiting price
	Remaining  *Quantity       // Remaining quantity
	Total      uint64          // Total volume requested
	Sequence   uint64          // Arrival order within the book, breaks price ties
	Timestamp  time.Time       // Time of arrival of order into the book
}

// NewOrder builds an order carrying a fresh uuid. The sequence is assigned by
// the book that accepts it.
func NewOrder(instrument Instrument, side Side, price decimal.Decimal, quantity uint64) *Order {
	return &Order{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Side:       side,
		Price:      price,
		Remaining:  NewQuantity(quantity),
		Total:      quantity,
		Timestamp:  time.Now(),
	}
}

// Crosses reports whether this order may trade against a resting order at
// the given price.
func (order *Order) Crosses(resting decimal.Decimal) bool {
	if order.Side == Buy {
		return order.Price.GreaterThanOrEqual(resting)
	}
	return order.Price.LessThanOrEqual(resting)
}

func (order *Order) String() string {
	return fmt.Sprintf(
		`ID:         %s
Instrument: %s
Side:       %v
Price:      %s
Quantity:   %d (Total: %d)
Sequence:   %d
Timestamp:  %v`,
		order.ID,
		order.Instrument,
		order.Side,
		order.Price.String(),
		order.Remaining.Get(),
		order.Total,
		order.Sequence,
		order.Timestamp.Format(time.RFC3339),
	)
}
