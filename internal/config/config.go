package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the simulator binary. LoadConfig layers the
// YAML file over Default and then applies environment overrides.
type Config struct {
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Engine struct {
		VerifyBooks bool `yaml:"verify_books"`
	} `yaml:"engine"`

	Simulation Simulation `yaml:"simulation"`
}

// Simulation describes the random order flow the driver generates.
type Simulation struct {
	Brokers          int             `yaml:"brokers"`
	OrdersPerBroker  int             `yaml:"orders_per_broker"`
	Instruments      int             `yaml:"instruments"`
	InstrumentPrefix string          `yaml:"instrument_prefix"`
	PriceMin         decimal.Decimal `yaml:"price_min"`
	PriceMax         decimal.Decimal `yaml:"price_max"`
	PricePlaces      int32           `yaml:"price_places"`
	QtyMin           uint64          `yaml:"qty_min"`
	QtyMax           uint64          `yaml:"qty_max"`
	Seed             uint64          `yaml:"seed"` // 0 picks a seed from the clock
}

func Default() *Config {
	var cfg Config
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Simulation = Simulation{
		Brokers:          3,
		OrdersPerBroker:  50,
		Instruments:      1024,
		InstrumentPrefix: "T",
		PriceMin:         decimal.NewFromInt(100),
		PriceMax:         decimal.NewFromInt(150),
		PricePlaces:      2,
		QtyMin:           10,
		QtyMax:           500,
	}
	return &cfg
}

// LoadConfig reads the file at path over the defaults. An empty path means
// defaults plus environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("log format must be console or json, got %q", c.Logging.Format)
	}
	return c.Simulation.Validate()
}

func (s *Simulation) Validate() error {
	switch {
	case s.Brokers <= 0:
		return fmt.Errorf("brokers must be positive")
	case s.OrdersPerBroker <= 0:
		return fmt.Errorf("orders per broker must be positive")
	case s.Instruments <= 0:
		return fmt.Errorf("instruments must be positive")
	case s.PricePlaces < 0 || s.PricePlaces > 8:
		return fmt.Errorf("price places must be within [0, 8]")
	case s.PriceMin.IsNegative():
		return fmt.Errorf("price min must not be negative")
	case s.PriceMax.LessThan(s.PriceMin):
		return fmt.Errorf("price max %s below price min %s", s.PriceMax, s.PriceMin)
	case !s.PriceMin.Shift(s.PricePlaces).IsInteger() || !s.PriceMax.Shift(s.PricePlaces).IsInteger():
		return fmt.Errorf("price range must be expressible in %d decimal places", s.PricePlaces)
	case s.QtyMin == 0:
		return fmt.Errorf("qty min must be positive")
	case s.QtyMax < s.QtyMin:
		return fmt.Errorf("qty max %d below qty min %d", s.QtyMax, s.QtyMin)
	}
	return nil
}

// overrideWithEnv lets the environment win over the file.
func overrideWithEnv(cfg *Config) error {
	if level := os.Getenv("SKOLL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if seed := os.Getenv("SKOLL_SEED"); seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("SKOLL_SEED: %w", err)
		}
		cfg.Simulation.Seed = v
	}
	return nil
}
