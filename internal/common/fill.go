package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one matching event between an incoming (taker) order and a
// resting (maker) order. It always executes at the maker's price.
type Fill struct {
	Instrument Instrument
	Price      decimal.Decimal
	Quantity   uint64
	TakerID    string
	MakerID    string
	TakerSide  Side
	Sequence   uint64 // Sequence of the taker order
	Timestamp  time.Time
}

func (f Fill) String() string {
	return fmt.Sprintf(
		`Instrument: %s
Price:      %s
Quantity:   %d
Taker:      %s (%v)
Maker:      %s
Timestamp:  %v`,
		f.Instrument,
		f.Price.String(),
		f.Quantity,
		f.TakerID,
		f.TakerSide,
		f.MakerID,
		f.Timestamp.Format(time.RFC3339),
	)
}
