package engine

import (
	"fmt"

	. "skoll/internal/common"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

type priceLevel struct {
	price  decimal.Decimal
	orders []*Order // FIFO, ascending sequence
}

type priceLevels = btree.BTreeG[*priceLevel]

// BookSide holds the resting orders of one side of one instrument in
// price-time priority. It is not safe for concurrent use; the owning
// OrderBook serializes access.
type BookSide struct {
	side   Side
	levels *priceLevels

	// Some book keeping
	nOrders int    // Track the number of orders resting on this side.
	volume  uint64 // Track the liquidity resting on this side.
}

func NewBookSide(side Side) *BookSide {
	var less func(a, b *priceLevel) bool
	if side == Buy {
		// Sorted greatest first.
		less = func(a, b *priceLevel) bool {
			return a.price.GreaterThan(b.price)
		}
	} else {
		// Sorted least first.
		less = func(a, b *priceLevel) bool {
			return a.price.LessThan(b.price)
		}
	}
	return &BookSide{
		side:   side,
		levels: btree.NewBTreeG(less),
	}
}

func (bs *BookSide) Side() Side { return bs.side }

// Len is the number of resting orders.
func (bs *BookSide) Len() int { return bs.nOrders }

// Volume is the total remaining quantity resting on this side.
func (bs *BookSide) Volume() uint64 { return bs.volume }

// PeekBest returns the highest priority resting order, or nil.
func (bs *BookSide) PeekBest() *Order {
	level, ok := bs.levels.Min()
	if !ok {
		return nil
	}
	return level.orders[0]
}

// Insert rests an order behind every order already at its price.
func (bs *BookSide) Insert(order *Order) error {
	if order.Side != bs.side {
		return fmt.Errorf("%w: %v order %s inserted into %v side",
			ErrInvariantBreach, order.Side, order.ID, bs.side)
	}
	remaining := order.Remaining.Get()
	if remaining == 0 {
		return fmt.Errorf("%w: order %s inserted with no remaining quantity",
			ErrInvariantBreach, order.ID)
	}

	// Levels comparator only accounts for price levels, so we create a dummy price
	// level for the search.
	level, ok := bs.levels.GetMut(&priceLevel{price: order.Price})
	if ok {
		level.orders = append(level.orders, order)
	} else {
		bs.levels.Set(&priceLevel{
			price:  order.Price,
			orders: []*Order{order},
		})
	}

	bs.nOrders++
	bs.volume += remaining
	return nil
}

// RemoveHead drops the best order, deleting its level when it empties.
func (bs *BookSide) RemoveHead() *Order {
	level, ok := bs.levels.MinMut()
	if !ok {
		return nil
	}
	head := level.orders[0]
	level.orders[0] = nil
	level.orders = level.orders[1:]
	if len(level.orders) == 0 {
		bs.levels.Delete(level)
	}

	bs.nOrders--
	bs.volume -= head.Remaining.Get()
	return head
}

// Reduce accounts for qty matched away from a resting order on this side.
func (bs *BookSide) Reduce(qty uint64) {
	bs.volume -= qty
}

// Orders lists resting orders best first.
func (bs *BookSide) Orders() []*Order {
	orders := make([]*Order, 0, bs.nOrders)
	bs.levels.Scan(func(level *priceLevel) bool {
		orders = append(orders, level.orders...)
		return true
	})
	return orders
}

// Verify walks the side and checks ordering, positivity and the book
// keeping counters.
func (bs *BookSide) Verify() error {
	var (
		err     error
		prev    *priceLevel
		nOrders int
		volume  uint64
	)
	bs.levels.Scan(func(level *priceLevel) bool {
		if len(level.orders) == 0 {
			err = fmt.Errorf("%w: empty %v level at %s", ErrInvariantBreach, bs.side, level.price)
			return false
		}
		if prev != nil && !bs.better(prev.price, level.price) {
			err = fmt.Errorf("%w: %v level %s sorted after %s",
				ErrInvariantBreach, bs.side, level.price, prev.price)
			return false
		}
		var lastSeq uint64
		for i, order := range level.orders {
			remaining := order.Remaining.Get()
			switch {
			case order.Side != bs.side:
				err = fmt.Errorf("%w: %v order %s on %v side", ErrInvariantBreach, order.Side, order.ID, bs.side)
			case !order.Price.Equal(level.price):
				err = fmt.Errorf("%w: order %s priced %s in level %s", ErrInvariantBreach, order.ID, order.Price, level.price)
			case remaining == 0:
				err = fmt.Errorf("%w: drained order %s still resting", ErrInvariantBreach, order.ID)
			case i > 0 && order.Sequence <= lastSeq:
				err = fmt.Errorf("%w: order %s out of time priority at %s", ErrInvariantBreach, order.ID, level.price)
			}
			if err != nil {
				return false
			}
			lastSeq = order.Sequence
			nOrders++
			volume += remaining
		}
		prev = level
		return true
	})
	if err != nil {
		return err
	}
	if nOrders != bs.nOrders || volume != bs.volume {
		return fmt.Errorf("%w: %v side counts %d orders/%d volume, found %d/%d",
			ErrInvariantBreach, bs.side, bs.nOrders, bs.volume, nOrders, volume)
	}
	return nil
}

// better reports whether price a has strictly higher priority than b.
func (bs *BookSide) better(a, b decimal.Decimal) bool {
	if bs.side == Buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}
