package engine

import (
	"fmt"
	"sync"

	. "skoll/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// OrderBook owns both sides of one instrument. Submissions and snapshots
// are serialized by the book's mutex; books of different instruments share
// nothing but the sequencer.
type OrderBook struct {
	mu sync.Mutex

	instrument Instrument
	seq        *Sequencer

	// Sorted best first: bids greatest price first, asks least price first,
	// each price level ordered by sequence as orders are push-back'd.
	bids *BookSide
	asks *BookSide

	verify bool  // Verify both sides after every submission.
	halted error // First invariant breach observed, if any.
}

func NewOrderBook(instrument Instrument, seq *Sequencer) *OrderBook {
	if seq == nil {
		seq = NewSequencer(0)
	}
	return &OrderBook{
		instrument: instrument,
		seq:        seq,
		bids:       NewBookSide(Buy),
		asks:       NewBookSide(Sell),
	}
}

func (book *OrderBook) Instrument() Instrument { return book.instrument }

// SetVerify enables a full walk of both sides after each submission.
func (book *OrderBook) SetVerify(verify bool) {
	book.mu.Lock()
	defer book.mu.Unlock()
	book.verify = verify
}

// Submit places a new order which can either (fully or partially):
// 1. Execute immediately against resting orders on the opposite side
// 2. Rest in the book
// Fills are returned in the order they happened, each at the resting price.
//
// Invalid input is rejected before the book is touched. If an invariant
// breach is detected the book halts; the fills executed before the fault
// are returned together with the error.
func (book *OrderBook) Submit(side Side, quantity uint64, price decimal.Decimal) ([]Fill, error) {
	if err := validate(side, quantity, price); err != nil {
		return nil, err
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	if book.halted != nil {
		return nil, fmt.Errorf("%w: %s", ErrInstrumentHalted, book.instrument)
	}

	order := NewOrder(book.instrument, side, price, quantity)
	order.Sequence = book.seq.Next()

	fills, err := book.match(order)
	if err != nil {
		return fills, book.halt(err)
	}

	// Limit orders are placed on the same side as their order.Side. This is because
	// they are resting.
	if order.Remaining.Get() > 0 {
		if err := book.sideOf(side).Insert(order); err != nil {
			return fills, book.halt(err)
		}
	}

	if book.verify {
		if err := book.check(); err != nil {
			return fills, book.halt(err)
		}
	}
	return fills, nil
}

// match consumes the opposite side best order first while it crosses the
// incoming order and the incoming order has quantity left.
func (book *OrderBook) match(order *Order) ([]Fill, error) {
	opposite := book.sideOf(order.Side.Opposite())

	var fills []Fill
	for order.Remaining.Get() > 0 {
		best := opposite.PeekBest()
		if best == nil || !order.Crosses(best.Price) {
			break
		}

		matched := min(order.Remaining.Get(), best.Remaining.Get())
		if matched == 0 {
			return fills, fmt.Errorf("%w: resting order %s has no quantity",
				ErrInvariantBreach, best.ID)
		}

		takenMaker, makerLeft := best.Remaining.DecrementClampToZero(matched)
		takenTaker, _ := order.Remaining.DecrementClampToZero(matched)
		if takenMaker != matched || takenTaker != matched {
			return fills, fmt.Errorf("%w: matched %d but took %d from maker %s and %d from taker %s",
				ErrInvariantBreach, matched, takenMaker, best.ID, takenTaker, order.ID)
		}
		opposite.Reduce(matched)

		fills = append(fills, Fill{
			Instrument: book.instrument,
			Price:      best.Price,
			Quantity:   matched,
			TakerID:    order.ID,
			MakerID:    best.ID,
			TakerSide:  order.Side,
			Sequence:   order.Sequence,
			Timestamp:  order.Timestamp,
		})

		log.Debug().
			Str("instrument", book.instrument.String()).
			Str("price", best.Price.String()).
			Uint64("quantity", matched).
			Str("taker", order.ID).
			Str("maker", best.ID).
			Msg("fill")

		if makerLeft == 0 {
			opposite.RemoveHead()
		}
	}
	return fills, nil
}

// Snapshot copies both sides best first.
func (book *OrderBook) Snapshot() Snapshot {
	book.mu.Lock()
	defer book.mu.Unlock()

	return Snapshot{
		Instrument: book.instrument,
		Bids:       restingOrders(book.bids.Orders()),
		Asks:       restingOrders(book.asks.Orders()),
	}
}

// Stats reports the book keeping counters of both sides.
func (book *OrderBook) Stats() BookStats {
	book.mu.Lock()
	defer book.mu.Unlock()

	return BookStats{
		Instrument:   book.instrument,
		BuyOrders:    book.bids.Len(),
		SellOrders:   book.asks.Len(),
		BuyQuantity:  book.bids.Volume(),
		SellQuantity: book.asks.Volume(),
		Halted:       book.halted != nil,
	}
}

// Verify checks both sides under the book lock.
func (book *OrderBook) Verify() error {
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.check()
}

func (book *OrderBook) check() error {
	if err := book.bids.Verify(); err != nil {
		return err
	}
	if err := book.asks.Verify(); err != nil {
		return err
	}
	bid, ask := book.bids.PeekBest(), book.asks.PeekBest()
	if bid != nil && ask != nil && bid.Price.GreaterThanOrEqual(ask.Price) {
		return fmt.Errorf("%w: book crossed, bid %s >= ask %s",
			ErrInvariantBreach, bid.Price, ask.Price)
	}
	return nil
}

// halt stops the book from accepting further orders. Must be called with
// the lock held.
func (book *OrderBook) halt(err error) error {
	book.halted = err
	log.Error().
		Err(err).
		Str("instrument", book.instrument.String()).
		Msg("order book halted")
	return err
}

func (book *OrderBook) sideOf(side Side) *BookSide {
	if side == Buy {
		return book.bids
	}
	return book.asks
}

func validate(side Side, quantity uint64, price decimal.Decimal) error {
	switch {
	case !side.Valid():
		return fmt.Errorf("%w: %w: %d", ErrRejection, ErrInvalidSide, side)
	case quantity == 0:
		return fmt.Errorf("%w: %w", ErrRejection, ErrInvalidQuantity)
	case price.IsNegative():
		return fmt.Errorf("%w: %w: %s", ErrRejection, ErrNegativePrice, price)
	}
	return nil
}
