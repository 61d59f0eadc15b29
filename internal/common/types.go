package common

// Instrument identifies a tradable product, e.g. a ticker.
type Instrument string

func (i Instrument) String() string { return string(i) }

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "UNKNOWN"
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) Valid() bool { return s == Buy || s == Sell }
