package holding

import (
	"errors"
	"fmt"
	"go-currency-keeper/domain"
	"sync"
)

var (
	// ErrUnknownCurrency no holding exists for the requested code
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrDuplicateCurrency a holding for the code already exists
	ErrDuplicateCurrency = errors.New("duplicate currency")

	// ErrInvalidAmount an amount is NaN or infinite, or would become so
	ErrInvalidAmount = errors.New("invalid amount")
)

// Observation the outcome of applying a fetched rate to a holding
type Observation int

const (
	// Unchanged the fetched rate equals the known cost
	Unchanged Observation = iota
	// First the holding had no cost before
	First
	// Changed the cost was updated and the holding marked dirty
	Changed
	// Reference the holding is the reference currency, its cost never changes
	Reference
)

func (o Observation) String() string {
	switch o {
	case First:
		return "first"
	case Changed:
		return "changed"
	case Reference:
		return "reference"
	default:
		return "unchanged"
	}
}

// Registry ordered collection of holdings keyed by currency code.
// All methods are concurrency safe; every method holds the lock for its whole
// read-modify-write so readers never see a holding half updated.
type Registry struct {
	// reference the currency every cost is expressed in
	reference domain.Currency

	// holdings in insertion order, the reference currency first
	holdings []*Holding

	// lock guards holdings and every field of every holding
	lock sync.RWMutex
}

// NewRegistry returns a registry holding only the reference currency, at cost 1
func NewRegistry(reference domain.Currency) *Registry {
	reference = domain.ParseCurrency(string(reference))
	return &Registry{
		reference: reference,
		holdings: []*Holding{
			{Code: reference, Cost: 1, HasCost: true},
		},
	}
}

// Reference the reference currency code
func (r *Registry) Reference() domain.Currency {
	return r.reference
}

// Add starts tracking a currency. Adding the reference currency only sets its amount.
// amount may be nil to leave the amount unset.
func (r *Registry) Add(code domain.Currency, amount *domain.Amount) error {
	code = domain.ParseCurrency(string(code))
	if code == "" {
		return fmt.Errorf("add: empty currency code")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if amount != nil && !amount.Finite() {
		return fmt.Errorf("add [%v]: %w: %v", code, ErrInvalidAmount, *amount)
	}

	h := r.find(code)
	switch {
	case h == nil:
		h = &Holding{Code: code}
		r.holdings = append(r.holdings, h)
	case code != r.reference:
		return fmt.Errorf("add [%v]: %w", code, ErrDuplicateCurrency)
	}
	if amount != nil {
		h.Amount = *amount
		h.HasAmount = true
	}
	return nil
}

// All a snapshot of every holding, in order
func (r *Registry) All() []Holding {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.snapshot()
}

// Find looks up a holding by its code
func (r *Registry) Find(code domain.Currency) (Holding, error) {
	code = domain.ParseCurrency(string(code))

	r.lock.RLock()
	defer r.lock.RUnlock()

	h := r.find(code)
	if h == nil {
		return Holding{}, fmt.Errorf("%w: %v", ErrUnknownCurrency, code)
	}
	return *h, nil
}

// Tracked the codes of every holding whose cost comes from the rate provider
func (r *Registry) Tracked() []domain.Currency {
	r.lock.RLock()
	defer r.lock.RUnlock()

	codes := make([]domain.Currency, 0, len(r.holdings))
	for _, h := range r.holdings {
		if h.Code != r.reference {
			codes = append(codes, h.Code)
		}
	}
	return codes
}

// Remove stops tracking the given codes and returns the ones actually removed.
// The reference currency is never removed.
func (r *Registry) Remove(codes ...domain.Currency) []domain.Currency {
	drop := make(map[domain.Currency]bool, len(codes))
	for _, code := range codes {
		code = domain.ParseCurrency(string(code))
		if code != r.reference {
			drop[code] = true
		}
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	var removed []domain.Currency
	kept := r.holdings[:0]
	for _, h := range r.holdings {
		if drop[h.Code] {
			removed = append(removed, h.Code)
			continue
		}
		kept = append(kept, h)
	}
	for i := len(kept); i < len(r.holdings); i++ {
		r.holdings[i] = nil
	}
	r.holdings = kept
	return removed
}

// Observe applies a freshly fetched rate to the holding for code.
// The first observation of a currency is not a change and leaves the holding clean.
func (r *Registry) Observe(code domain.Currency, rate domain.Rate) (Observation, error) {
	code = domain.ParseCurrency(string(code))

	r.lock.Lock()
	defer r.lock.Unlock()

	h := r.find(code)
	switch {
	case h == nil:
		return Unchanged, fmt.Errorf("%w: %v", ErrUnknownCurrency, code)
	case code == r.reference:
		return Reference, nil
	case !h.HasCost:
		h.Cost = rate
		h.HasCost = true
		return First, nil
	case h.Cost != rate:
		h.Cost = rate
		h.Dirty = true
		return Changed, nil
	default:
		return Unchanged, nil
	}
}

// SetAmounts overwrites the amount of every holding named in amounts and marks it dirty.
// Codes that match no holding are ignored. Returns the state of every holding afterwards.
// A non finite amount rejects the whole request and leaves every holding untouched.
func (r *Registry) SetAmounts(amounts domain.Amounts) ([]Holding, error) {
	return r.update(amounts, func(_, a domain.Amount) domain.Amount {
		return a
	})
}

// ModifyAmounts adds a delta to the amount of every holding named in deltas and marks it dirty.
// An unset amount is treated as zero. A delta that overflows an amount rejects the whole
// request and leaves every holding untouched.
func (r *Registry) ModifyAmounts(deltas domain.Amounts) ([]Holding, error) {
	return r.update(deltas, func(current, d domain.Amount) domain.Amount {
		return current + d
	})
}

// TakeDirty clears every dirty flag and returns the holdings that had one set,
// as they were when cleared.
func (r *Registry) TakeDirty() []Holding {
	r.lock.Lock()
	defer r.lock.Unlock()

	var dirty []Holding
	for _, h := range r.holdings {
		if h.Dirty {
			h.Dirty = false
			dirty = append(dirty, *h)
		}
	}
	return dirty
}

func (r *Registry) update(amounts domain.Amounts, next func(current, a domain.Amount) domain.Amount) ([]Holding, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	// every new amount is checked before any is written
	pending := make(map[*Holding]domain.Amount, len(amounts))
	for code, a := range amounts {
		h := r.find(domain.ParseCurrency(string(code)))
		if h == nil {
			continue
		}
		current, ok := pending[h]
		if !ok {
			current = h.Amount
		}
		amount := next(current, a)
		if !a.Finite() || !amount.Finite() {
			return nil, fmt.Errorf("%w: %v %v", ErrInvalidAmount, h.Code, a)
		}
		pending[h] = amount
	}

	for h, amount := range pending {
		h.Amount = amount
		h.HasAmount = true
		h.Dirty = true
	}
	return r.snapshot(), nil
}

// find must be called with the lock held
func (r *Registry) find(code domain.Currency) *Holding {
	for _, h := range r.holdings {
		if h.Code == code {
			return h
		}
	}
	return nil
}

// snapshot must be called with the lock held
func (r *Registry) snapshot() []Holding {
	all := make([]Holding, len(r.holdings))
	for i, h := range r.holdings {
		all[i] = *h
	}
	return all
}
