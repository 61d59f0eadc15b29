package simulate

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "skoll/internal/common"
	"skoll/internal/config"
	"skoll/internal/engine"
	"skoll/internal/utils"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

var ErrImproperConversion = errors.New("improper type conversion")

// Summary totals a simulation run.
type Summary struct {
	Orders         uint64 // Submissions attempted
	Quantity       uint64 // Quantity submitted
	Fills          uint64
	FilledQuantity uint64
	Rejected       uint64 // Precondition failures
	Failed         uint64 // Halted instruments and invariant breaches
}

type counters struct {
	orders, quantity, fills, filled, rejected, failed atomic.Uint64
}

func (c *counters) summary() Summary {
	return Summary{
		Orders:         c.orders.Load(),
		Quantity:       c.quantity.Load(),
		Fills:          c.fills.Load(),
		FilledQuantity: c.filled.Load(),
		Rejected:       c.rejected.Load(),
		Failed:         c.failed.Load(),
	}
}

// broker is one independent order submitter.
type broker struct {
	id        int
	orders    int
	generator *Generator
}

// Run drives cfg.Brokers concurrent brokers, each submitting
// cfg.OrdersPerBroker random orders against eng. Cancelling ctx stops the
// brokers between orders; the summary then covers what was submitted.
func Run(ctx context.Context, eng *engine.Engine, cfg config.Simulation) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	instruments := eng.Instruments()
	if len(instruments) == 0 {
		return Summary{}, errors.New("engine has no instruments")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Info().
		Int("brokers", cfg.Brokers).
		Int("orders_per_broker", cfg.OrdersPerBroker).
		Int("instruments", len(instruments)).
		Uint64("seed", seed).
		Msg("simulation starting")

	var c counters
	pool := utils.NewWorkerPool(uint(cfg.Brokers))
	work := func(t *tomb.Tomb, task any) error {
		b, ok := task.(broker)
		if !ok {
			return ErrImproperConversion
		}
		b.trade(t, eng, &c)
		return nil
	}

	t, _ := tomb.WithContext(ctx)
	t.Go(func() error {
		pool.Setup(t, work)
		for id := range cfg.Brokers {
			b := broker{
				id:        id,
				orders:    cfg.OrdersPerBroker,
				generator: NewGenerator(cfg, instruments, seed+uint64(id)),
			}
			if !pool.AddTask(t, b) {
				break
			}
		}
		pool.Close()
		return nil
	})
	err := t.Wait()

	summary := c.summary()
	log.Info().
		Uint64("orders", summary.Orders).
		Uint64("fills", summary.Fills).
		Uint64("filled_quantity", summary.FilledQuantity).
		Uint64("rejected", summary.Rejected).
		Uint64("failed", summary.Failed).
		Msg("simulation finished")
	return summary, err
}

func (b broker) trade(t *tomb.Tomb, eng *engine.Engine, c *counters) {
	for range b.orders {
		select {
		case <-t.Dying():
			return
		default:
		}

		req := b.generator.Next()
		log.Debug().
			Int("broker", b.id).
			Str("side", req.Side.String()).
			Str("instrument", req.Instrument.String()).
			Uint64("quantity", req.Quantity).
			Str("price", req.Price.String()).
			Msg("adding order")

		fills, err := eng.Submit(req.Side, req.Instrument, req.Quantity, req.Price)
		c.orders.Add(1)
		c.quantity.Add(req.Quantity)
		for _, f := range fills {
			c.fills.Add(1)
			c.filled.Add(f.Quantity)
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrRejection):
			c.rejected.Add(1)
		default:
			// A halted instrument stays halted; other instruments keep trading.
			c.failed.Add(1)
		}
	}
}
