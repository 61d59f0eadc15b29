package engine_test

import (
	"sync"
	"testing"

	. "skoll/internal/common"
	"skoll/internal/engine"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

const ticker Instrument = "AAPL"

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createTestOrderBook() *engine.OrderBook {
	book := engine.NewOrderBook(ticker, engine.NewSequencer(0))
	book.SetVerify(true)
	return book
}

func placeTestOrders(t *testing.T, book *engine.OrderBook, p string, side Side, quantities ...uint64) []Fill {
	t.Helper()
	var fills []Fill
	for _, qty := range quantities {
		f, err := book.Submit(side, qty, price(p))
		require.NoError(t, err)
		fills = append(fills, f...)
	}
	return fills
}

type expectedFill struct {
	price    string
	quantity uint64
}

func assertFills(t *testing.T, expected []expectedFill, fills []Fill) {
	t.Helper()
	require.Len(t, fills, len(expected))
	for i, want := range expected {
		assert.True(t, price(want.price).Equal(fills[i].Price),
			"fill %d: want price %s, got %s", i, want.price, fills[i].Price)
		assert.Equal(t, want.quantity, fills[i].Quantity, "fill %d quantity", i)
		assert.Equal(t, ticker, fills[i].Instrument)
	}
}

type flatLevel struct {
	price      string
	quantities []uint64
}

// flatten reduces resting orders to (price, remaining quantities) per level.
func flatten(orders []engine.RestingOrder) []flatLevel {
	var levels []flatLevel
	for _, o := range orders {
		n := len(levels)
		if n > 0 && price(levels[n-1].price).Equal(o.Price) {
			levels[n-1].quantities = append(levels[n-1].quantities, o.Remaining)
			continue
		}
		levels = append(levels, flatLevel{price: o.Price.StringFixed(2), quantities: []uint64{o.Remaining}})
	}
	return levels
}

func level(p string, quantities ...uint64) flatLevel {
	return flatLevel{price: p, quantities: quantities}
}

// --- Tests ------------------------------------------------------------------

func TestSubmit_ExactCross(t *testing.T) {
	book := createTestOrderBook()

	assert.Empty(t, placeTestOrders(t, book, "10.00", Sell, 100))
	fills := placeTestOrders(t, book, "10.00", Buy, 100)

	assertFills(t, []expectedFill{{"10.00", 100}}, fills)
	assert.True(t, book.Snapshot().Empty(), "both sides should be empty")
}

func TestSubmit_BestPriceFirst(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "10.00", Sell, 50)
	placeTestOrders(t, book, "9.50", Sell, 30)
	fills := placeTestOrders(t, book, "10.00", Buy, 100)

	assertFills(t, []expectedFill{{"9.50", 30}, {"10.00", 50}}, fills)

	snapshot := book.Snapshot()
	assert.Empty(t, snapshot.Asks)
	assert.Equal(t, []flatLevel{level("10.00", 20)}, flatten(snapshot.Bids))
}

func TestSubmit_EmptyBookRests(t *testing.T) {
	book := createTestOrderBook()

	assert.Empty(t, placeTestOrders(t, book, "10.00", Buy, 40))

	snapshot := book.Snapshot()
	require.Len(t, snapshot.Bids, 1)
	assert.Equal(t, uint64(40), snapshot.Bids[0].Remaining)
	assert.Equal(t, uint64(40), snapshot.Bids[0].Total)
	assert.True(t, price("10").Equal(snapshot.Bids[0].Price))
	assert.Empty(t, snapshot.Asks)
}

func TestSubmit_NoCross(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "10.00", Sell, 10)
	assert.Empty(t, placeTestOrders(t, book, "9.00", Buy, 10))

	snapshot := book.Snapshot()
	assert.Equal(t, []flatLevel{level("9.00", 10)}, flatten(snapshot.Bids))
	assert.Equal(t, []flatLevel{level("10.00", 10)}, flatten(snapshot.Asks))
}

func TestSubmit_AggressorGetsRestingPrice(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "101.25", Buy, 10)
	fills := placeTestOrders(t, book, "99.00", Sell, 4)

	assertFills(t, []expectedFill{{"101.25", 4}}, fills)
	assert.Equal(t, []flatLevel{level("101.25", 6)}, flatten(book.Snapshot().Bids))
}

func TestSubmit_MultipleLevels(t *testing.T) {
	book := createTestOrderBook()

	// 1. Setup BIDS: Highest price first (99 -> 98)
	placeTestOrders(t, book, "99.00", Buy, 100, 90, 80)
	placeTestOrders(t, book, "98.00", Buy, 50)

	// 2. Setup ASKS: Lowest price first (100 -> 101)
	placeTestOrders(t, book, "101.00", Sell, 20)
	placeTestOrders(t, book, "100.00", Sell, 100, 90)

	snapshot := book.Snapshot()
	assert.Equal(t, []flatLevel{
		level("100.00", 100, 90),
		level("101.00", 20),
	}, flatten(snapshot.Asks), "Asks should be sorted Low -> High")
	assert.Equal(t, []flatLevel{
		level("99.00", 100, 90, 80),
		level("98.00", 50),
	}, flatten(snapshot.Bids), "Bids should be sorted High -> Low")

	// 3. Check complete match of the head order.
	assertFills(t, []expectedFill{{"100.00", 100}}, placeTestOrders(t, book, "100.00", Buy, 100))
	assert.Equal(t, []flatLevel{
		level("100.00", 90),
		level("101.00", 20),
	}, flatten(book.Snapshot().Asks))

	// 4. Check partial match.
	assertFills(t, []expectedFill{{"100.00", 20}}, placeTestOrders(t, book, "100.00", Buy, 20))
	assert.Equal(t, []flatLevel{
		level("100.00", 70),
		level("101.00", 20),
	}, flatten(book.Snapshot().Asks))
}

func TestSubmit_SweepAsks(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "100.00", Sell, 100, 90)
	placeTestOrders(t, book, "101.00", Sell, 20)

	// Multi-level sweep with a deep into the book order.
	fills := placeTestOrders(t, book, "103.00", Buy, 200)
	assertFills(t, []expectedFill{{"100.00", 100}, {"100.00", 90}, {"101.00", 10}}, fills)
	assert.Equal(t, []flatLevel{level("101.00", 10)}, flatten(book.Snapshot().Asks))
	assert.Empty(t, book.Snapshot().Bids)
}

func TestSubmit_SweepBidsAndRest(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "99.00", Buy, 100, 90, 80)
	placeTestOrders(t, book, "98.00", Buy, 50)

	fills := placeTestOrders(t, book, "96.00", Sell, 330)
	assertFills(t, []expectedFill{{"99.00", 100}, {"99.00", 90}, {"99.00", 80}, {"98.00", 50}}, fills)

	snapshot := book.Snapshot()
	assert.Empty(t, snapshot.Bids)
	assert.Equal(t, []flatLevel{level("96.00", 10)}, flatten(snapshot.Asks))
}

func TestSubmit_TimePriorityAtEqualPrice(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "10.00", Sell, 5, 6, 7)
	snapshot := book.Snapshot()
	require.Len(t, snapshot.Asks, 3)
	first, second, third := snapshot.Asks[0], snapshot.Asks[1], snapshot.Asks[2]
	assert.Less(t, first.Sequence, second.Sequence)
	assert.Less(t, second.Sequence, third.Sequence)

	fills := placeTestOrders(t, book, "10.00", Buy, 8)
	require.Len(t, fills, 2)
	assert.Equal(t, first.ID, fills[0].MakerID)
	assert.Equal(t, uint64(5), fills[0].Quantity)
	assert.Equal(t, second.ID, fills[1].MakerID)
	assert.Equal(t, uint64(3), fills[1].Quantity)
	assert.Equal(t, fills[0].TakerID, fills[1].TakerID)
	assert.Equal(t, Buy, fills[0].TakerSide)

	// A later order at the same price queues behind the partially filled one.
	placeTestOrders(t, book, "10", Sell, 9)
	assert.Equal(t, []flatLevel{level("10.00", 3, 7, 9)}, flatten(book.Snapshot().Asks))
}

func TestSubmit_ZeroPrice(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "0", Sell, 10)
	fills := placeTestOrders(t, book, "0", Buy, 10)
	assertFills(t, []expectedFill{{"0", 10}}, fills)
}

func TestSubmit_Rejections(t *testing.T) {
	book := createTestOrderBook()
	placeTestOrders(t, book, "10.00", Sell, 10)
	before := book.Snapshot()

	_, err := book.Submit(Buy, 0, price("10.00"))
	assert.ErrorIs(t, err, ErrRejection)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = book.Submit(Buy, 10, price("-0.01"))
	assert.ErrorIs(t, err, ErrRejection)
	assert.ErrorIs(t, err, ErrNegativePrice)

	_, err = book.Submit(Side(7), 10, price("10.00"))
	assert.ErrorIs(t, err, ErrInvalidSide)

	assert.Equal(t, before, book.Snapshot(), "rejections must not touch the book")
	assert.NoError(t, book.Verify())
}

func TestStats_TracksBookKeeping(t *testing.T) {
	book := createTestOrderBook()

	placeTestOrders(t, book, "99.00", Buy, 100, 90)
	placeTestOrders(t, book, "101.00", Sell, 20)
	placeTestOrders(t, book, "99.00", Sell, 150)

	stats := book.Stats()
	assert.Equal(t, engine.BookStats{
		Instrument:   ticker,
		BuyOrders:    1,
		SellOrders:   1,
		BuyQuantity:  40,
		SellQuantity: 20,
	}, stats)
}

func TestSubmit_ConcurrentSellsAgainstOneBuy(t *testing.T) {
	for range 200 {
		book := createTestOrderBook()

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fills []Fill
		)
		submit := func(side Side, qty uint64) {
			defer wg.Done()
			f, err := book.Submit(side, qty, price("10.00"))
			assert.NoError(t, err)
			mu.Lock()
			fills = append(fills, f...)
			mu.Unlock()
		}

		wg.Add(3)
		go submit(Sell, 50)
		go submit(Sell, 50)
		go submit(Buy, 100)
		wg.Wait()

		require.Len(t, fills, 2)
		assert.Equal(t, uint64(100), fills[0].Quantity+fills[1].Quantity)
		assert.True(t, book.Snapshot().Empty())
		assert.NoError(t, book.Verify())
	}
}
