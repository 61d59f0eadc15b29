package engine

import (
	"fmt"
	"slices"
	"sync"

	. "skoll/internal/common"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Reporter receives the outcome of every submission. It is called after
// the instrument lock is released, from the submitting goroutine.
type Reporter interface {
	ReportFills(fills []Fill) error
	ReportError(instrument Instrument, err error) error
}

// Engine is the registry of per-instrument order books and the entry point
// for submissions. The registry lock is only held for lookups, so
// instruments proceed in parallel.
type Engine struct {
	mu       sync.RWMutex
	books    map[Instrument]*OrderBook
	seq      *Sequencer
	reporter Reporter
	verify   bool
}

func New(instruments ...Instrument) *Engine {
	engine := &Engine{
		books: make(map[Instrument]*OrderBook, len(instruments)),
		seq:   NewSequencer(0),
	}
	for _, instrument := range instruments {
		engine.books[instrument] = NewOrderBook(instrument, engine.seq)
	}
	return engine
}

func (engine *Engine) SetReporter(reporter Reporter) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.reporter = reporter
}

// SetVerify toggles a full book walk after every submission on every
// instrument, current and future.
func (engine *Engine) SetVerify(verify bool) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.verify = verify
	for _, book := range engine.books {
		book.SetVerify(verify)
	}
}

// AddInstrument registers a new instrument. It returns false if the
// instrument was already known.
func (engine *Engine) AddInstrument(instrument Instrument) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if _, ok := engine.books[instrument]; ok {
		return false
	}
	book := NewOrderBook(instrument, engine.seq)
	book.verify = engine.verify
	engine.books[instrument] = book

	log.Info().Str("instrument", instrument.String()).Msg("instrument added")
	return true
}

// Instruments lists the registered instruments in sorted order.
func (engine *Engine) Instruments() []Instrument {
	engine.mu.RLock()
	defer engine.mu.RUnlock()

	instruments := make([]Instrument, 0, len(engine.books))
	for instrument := range engine.books {
		instruments = append(instruments, instrument)
	}
	slices.Sort(instruments)
	return instruments
}

// Submit matches a new order against the instrument's book and rests any
// remainder. See OrderBook.Submit.
func (engine *Engine) Submit(side Side, instrument Instrument, quantity uint64, price decimal.Decimal) ([]Fill, error) {
	book, reporter, err := engine.lookup(instrument)
	if err != nil {
		engine.report(reporter, instrument, nil, err)
		return nil, err
	}

	fills, err := book.Submit(side, quantity, price)
	engine.report(reporter, instrument, fills, err)
	return fills, err
}

// Snapshot returns a consistent copy of the instrument's book.
func (engine *Engine) Snapshot(instrument Instrument) (Snapshot, error) {
	book, _, err := engine.lookup(instrument)
	if err != nil {
		return Snapshot{}, err
	}
	return book.Snapshot(), nil
}

func (engine *Engine) Stats(instrument Instrument) (BookStats, error) {
	book, _, err := engine.lookup(instrument)
	if err != nil {
		return BookStats{}, err
	}
	return book.Stats(), nil
}

// Verify checks every book and returns the first breach found.
func (engine *Engine) Verify() error {
	for _, instrument := range engine.Instruments() {
		book, _, err := engine.lookup(instrument)
		if err != nil {
			return err
		}
		if err := book.Verify(); err != nil {
			return fmt.Errorf("%s: %w", instrument, err)
		}
	}
	return nil
}

// LogBooks writes every non-empty book, level by level.
func (engine *Engine) LogBooks() {
	for _, instrument := range engine.Instruments() {
		snapshot, err := engine.Snapshot(instrument)
		if err != nil || snapshot.Empty() {
			continue
		}
		logLevels(instrument, Buy, Levels(snapshot.Bids))
		logLevels(instrument, Sell, Levels(snapshot.Asks))
	}
}

func logLevels(instrument Instrument, side Side, levels []Level) {
	for _, level := range levels {
		log.Info().
			Str("instrument", instrument.String()).
			Str("side", side.String()).
			Str("price", level.Price.String()).
			Uint64("quantity", level.Quantity).
			Int("orders", level.Orders).
			Msg("resting")
	}
}

func (engine *Engine) lookup(instrument Instrument) (*OrderBook, Reporter, error) {
	engine.mu.RLock()
	defer engine.mu.RUnlock()

	book, ok := engine.books[instrument]
	if !ok {
		return nil, engine.reporter, fmt.Errorf("%w: %w: %q", ErrRejection, ErrUnknownInstrument, instrument)
	}
	return book, engine.reporter, nil
}

func (engine *Engine) report(reporter Reporter, instrument Instrument, fills []Fill, err error) {
	if reporter == nil {
		return
	}
	if len(fills) > 0 {
		if rerr := reporter.ReportFills(fills); rerr != nil {
			log.Error().Err(rerr).Str("instrument", instrument.String()).Msg("unable to report fills")
		}
	}
	if err != nil {
		if rerr := reporter.ReportError(instrument, err); rerr != nil {
			log.Error().Err(rerr).Str("instrument", instrument.String()).Msg("unable to report error")
		}
	}
}
