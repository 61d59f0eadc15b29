package simulate

import (
	"fmt"
	"math/rand/v2"

	. "skoll/internal/common"
	"skoll/internal/config"

	"github.com/shopspring/decimal"
)

// OrderRequest is one random submission.
type OrderRequest struct {
	Side       Side
	Instrument Instrument
	Quantity   uint64
	Price      decimal.Decimal
}

// Generator draws random orders. It is not safe for concurrent use; each
// broker owns one.
type Generator struct {
	rng         *rand.Rand
	instruments []Instrument
	priceMin    decimal.Decimal
	ticks       int64 // number of price ticks above priceMin
	places      int32
	qtyMin      uint64
	qtySpan     uint64
}

func NewGenerator(cfg config.Simulation, instruments []Instrument, seed uint64) *Generator {
	return &Generator{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		instruments: instruments,
		priceMin:    cfg.PriceMin,
		ticks:       cfg.PriceMax.Sub(cfg.PriceMin).Shift(cfg.PricePlaces).IntPart(),
		places:      cfg.PricePlaces,
		qtyMin:      cfg.QtyMin,
		qtySpan:     cfg.QtyMax - cfg.QtyMin,
	}
}

// Next draws a side, an instrument, a quantity in [qty_min, qty_max] and a
// price on the tick grid in [price_min, price_max].
func (g *Generator) Next() OrderRequest {
	side := Buy
	if g.rng.IntN(2) == 1 {
		side = Sell
	}
	tick := g.rng.Int64N(g.ticks + 1)
	return OrderRequest{
		Side:       side,
		Instrument: g.instruments[g.rng.IntN(len(g.instruments))],
		Quantity:   g.qtyMin + g.rng.Uint64N(g.qtySpan+1),
		Price:      g.priceMin.Add(decimal.New(tick, -g.places)),
	}
}

// Instruments names the simulated universe, e.g. T0000..T1023.
func Instruments(cfg config.Simulation) []Instrument {
	instruments := make([]Instrument, cfg.Instruments)
	for i := range instruments {
		instruments[i] = Instrument(fmt.Sprintf("%s%04d", cfg.InstrumentPrefix, i))
	}
	return instruments
}
