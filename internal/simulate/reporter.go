package simulate

import (
	"errors"

	. "skoll/internal/common"

	"github.com/rs/zerolog/log"
)

// LogReporter writes every fill and failed submission to the global logger.
type LogReporter struct{}

func (LogReporter) ReportFills(fills []Fill) error {
	for _, f := range fills {
		log.Info().
			Str("instrument", f.Instrument.String()).
			Str("side", f.TakerSide.String()).
			Uint64("quantity", f.Quantity).
			Str("price", f.Price.String()).
			Str("taker", f.TakerID).
			Str("maker", f.MakerID).
			Msg("trade executed")
	}
	return nil
}

func (LogReporter) ReportError(instrument Instrument, err error) error {
	event := log.Error()
	if errors.Is(err, ErrRejection) {
		event = log.Warn()
	}
	event.Err(err).Str("instrument", instrument.String()).Msg("order failed")
	return nil
}
