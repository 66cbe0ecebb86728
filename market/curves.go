package market

import "time"

// Curve is the common surface of every latent-state curve.
type Curve interface {
	Label() Label
	Epoch() time.Time
}

// FundingCurve provides discount factors and zero rates for valuation.
type FundingCurve interface {
	Curve
	DF(t time.Time) float64
	ZeroRate(t time.Time) float64 // continuously compounded, decimal
}

// ForwardCurve projects simple forward rates of a floating index.
type ForwardCurve interface {
	Curve
	Forward(start, end time.Time) float64 // decimal
}

// CreditCurve provides survival probabilities and recovery for a reference entity.
type CreditCurve interface {
	Curve
	Survival(t time.Time) float64
	Hazard(t time.Time) float64
	Recovery(t time.Time) float64
}

// FXCurve provides outright FX forwards for a currency pair.
type FXCurve interface {
	Curve
	Forward(t time.Time) float64
}

// Surface is a deterministic real-valued function of time (volatility,
// correlation, recovery, custom metrics).
type Surface interface {
	Value(t time.Time) float64
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(t time.Time) float64

func (f SurfaceFunc) Value(t time.Time) float64 { return f(t) }

// FlatSurface is a constant surface.
type FlatSurface float64

func (f FlatSurface) Value(time.Time) float64 { return float64(f) }
