package config

import (
	"errors"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"go-currency-keeper/domain"
	"strconv"
	"strings"
	"time"
)

// Prefix of every environment variable read by Load
const Prefix = "KEEPER"

// Usage describes the command line
const Usage = `usage: keeper --period <minutes> [--debug <bool>] [--<code> <amount>]...

environment:
  KEEPER_ADDR             listen address (default :8080)
  KEEPER_PROVIDER_URL     rates document (default CBR daily JSON)
  KEEPER_FETCH_TIMEOUT    bound on a single rate fetch (default 10s)
  KEEPER_RECONCILE_EVERY  how often changes are reported (default 60s)
  KEEPER_REFERENCE        currency costs are expressed in (default RUB)`

// ErrUsage the command line could not be understood
var ErrUsage = errors.New("bad usage")

// Holding an initially tracked currency
type Holding struct {
	Code   domain.Currency
	Amount domain.Amount
}

// Config everything the keeper needs to start
type Config struct {
	Addr           string        `envconfig:"ADDR" default:":8080"`
	ProviderURL    string        `envconfig:"PROVIDER_URL" default:"https://www.cbr-xml-daily.ru/daily_json.js"`
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	ReconcileEvery time.Duration `envconfig:"RECONCILE_EVERY" default:"60s"`
	Reference      string        `envconfig:"REFERENCE" default:"RUB"`

	// Period between two rate refreshes, from --period in minutes
	Period time.Duration `ignored:"true"`
	// Debug enables debug logging, from --debug
	Debug bool `ignored:"true"`
	// Holdings in command line order, from every other --<code> <amount> pair
	Holdings []Holding `ignored:"true"`
}

// Load reads the environment and then args, the command line without the program name
func Load(args []string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.parse(args); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) parse(args []string) error {
	seen := map[string]bool{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || strings.Trim(arg, "-") == "" {
			return fmt.Errorf("%w: unexpected argument %q", ErrUsage, arg)
		}

		name, value, inline := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !inline {
			if i+1 >= len(args) {
				return fmt.Errorf("%w: --%v needs a value", ErrUsage, name)
			}
			i++
			value = args[i]
		}

		name = strings.ToLower(name)
		if seen[name] {
			return fmt.Errorf("%w: --%v given twice", ErrUsage, name)
		}
		seen[name] = true

		switch name {
		case "period":
			minutes, err := strconv.Atoi(value)
			if err != nil || minutes <= 0 {
				return fmt.Errorf("%w: --period must be a positive number of minutes, got %q", ErrUsage, value)
			}
			cfg.Period = time.Duration(minutes) * time.Minute
		case "debug":
			cfg.Debug = parseBool(value)
		default:
			if !isCode(name) {
				return fmt.Errorf("%w: unknown flag --%v", ErrUsage, name)
			}
			amount, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%w: --%v amount %q: %v", ErrUsage, name, value, err)
			}
			if !domain.Amount(amount).Finite() {
				return fmt.Errorf("%w: --%v amount %q is not a finite number", ErrUsage, name, value)
			}
			cfg.Holdings = append(cfg.Holdings, Holding{
				Code:   domain.ParseCurrency(name),
				Amount: domain.Amount(amount),
			})
		}
	}

	if cfg.Period == 0 {
		return fmt.Errorf("%w: --period is required", ErrUsage)
	}
	return nil
}

// parseBool true for true, 1, y and yes in any case, false for anything else
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "y", "yes":
		return true
	}
	return false
}

// isCode a currency code is made of letters only
func isCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
