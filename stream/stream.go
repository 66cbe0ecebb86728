package stream

import (
	"fmt"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// Kind is derived from a stream's periods.
type Kind int

const (
	KindFixed Kind = iota + 1
	KindFloating
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "FIXED"
	case KindFloating:
		return "FLOATING"
	default:
		return "UNKNOWN"
	}
}

// Stream is a non-empty, contiguous, increasing sequence of coupon periods
// settling in one currency. Periods are either all fixed or all on one index.
type Stream struct {
	periods    []CouponPeriod
	currency   string
	index      market.Index
	creditName string
}

// NewStream validates and builds a stream.
func NewStream(periods []CouponPeriod) (*Stream, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("stream without periods: %w", calib.ErrInvalidInput)
	}
	first := periods[0]
	for i := 1; i < len(periods); i++ {
		p := periods[i]
		if !p.Start().Equal(periods[i-1].End()) {
			return nil, fmt.Errorf("period %d starts %s, previous ends %s: %w",
				i, p.Start().Format(utils.DateLayout), periods[i-1].End().Format(utils.DateLayout), calib.ErrInvalidInput)
		}
		if p.PayCurrency() != first.PayCurrency() {
			return nil, fmt.Errorf("period %d pays %s, stream pays %s: %w", i, p.PayCurrency(), first.PayCurrency(), calib.ErrInvalidInput)
		}
		if p.Index().Name != first.Index().Name {
			return nil, fmt.Errorf("period %d references %q, stream references %q: %w", i, p.Index().Name, first.Index().Name, calib.ErrInvalidInput)
		}
	}
	return &Stream{
		periods:  append([]CouponPeriod(nil), periods...),
		currency: first.PayCurrency(),
		index:    first.Index(),
	}, nil
}

// Periods returns a copy of the coupon periods.
func (s *Stream) Periods() []CouponPeriod {
	return append([]CouponPeriod(nil), s.periods...)
}

func (s *Stream) Len() int                 { return len(s.periods) }
func (s *Stream) Period(i int) CouponPeriod { return s.periods[i] }
func (s *Stream) Currency() string          { return s.currency }
func (s *Stream) Index() market.Index       { return s.index }
func (s *Stream) IsFloating() bool          { return !s.index.IsZero() }
func (s *Stream) CreditName() string        { return s.creditName }

func (s *Stream) Kind() Kind {
	if s.IsFloating() {
		return KindFloating
	}
	return KindFixed
}

// Effective is the start of the first period.
func (s *Stream) Effective() time.Time { return s.periods[0].Start() }

// Maturity is the end of the last period.
func (s *Stream) Maturity() time.Time { return s.periods[len(s.periods)-1].End() }

// InitialNotional is the notional of the first period.
func (s *Stream) InitialNotional() float64 { return s.periods[0].Notional() }

// NotionalAt returns the notional outstanding on d: that of the first period
// not yet paid, or 0 once the stream has run off.
func (s *Stream) NotionalAt(d time.Time) float64 {
	for _, p := range s.periods {
		if !p.Pay().Before(d) {
			return p.Notional()
		}
	}
	return 0
}

// WithCreditName returns a copy whose risky measures reference the named entity.
func (s *Stream) WithCreditName(name string) *Stream {
	cp := *s
	cp.creditName = name
	return &cp
}

// WithCoupon returns a copy of a fixed stream paying coupon c on every period.
func (s *Stream) WithCoupon(c float64) *Stream {
	cp := *s
	cp.periods = make([]CouponPeriod, len(s.periods))
	for i, p := range s.periods {
		cp.periods[i] = p.WithCoupon(c)
	}
	return &cp
}

// WithSpread returns a copy of a floating stream paying spread sp on every period.
func (s *Stream) WithSpread(sp float64) *Stream {
	cp := *s
	cp.periods = make([]CouponPeriod, len(s.periods))
	for i, p := range s.periods {
		cp.periods[i] = p.WithSpread(sp)
	}
	return &cp
}

// live returns the periods whose pay date is on or after val.
func (s *Stream) live(val time.Time) []CouponPeriod {
	for i, p := range s.periods {
		if !p.Pay().Before(val) {
			return s.periods[i:]
		}
	}
	return nil
}
