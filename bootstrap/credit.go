package bootstrap

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/config"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/stream"
	"github.com/meenmo/mcurve/utils"
)

// CDS is a single-name credit default swap quoted on its running par spread.
// Premium is the unit-notional coupon schedule, paying zero until quoted.
type CDS struct {
	Tenor   string
	Premium *stream.Stream
}

// NewCDS builds the premium schedule of a CDS on name maturing tenor after effective.
func NewCDS(name, tenor string, effective time.Time, leg market.LegConvention, currency string) (CDS, error) {
	maturity, err := curve.AddTenor(effective, tenor)
	if err != nil {
		return CDS{}, err
	}
	s, err := stream.FixedStream(effective, maturity, leg, 1, 0, currency)
	if err != nil {
		return CDS{}, err
	}
	return CDS{Tenor: tenor, Premium: s.WithCreditName(name)}, nil
}

// Credit strips a piecewise-flat hazard curve from CDS par spreads, one node
// per contract maturity, solving each hazard with the earlier ones fixed.
type Credit struct {
	name      string
	currency  string
	epoch     time.Time
	contracts []CDS
	nodes     []time.Time
}

func NewCredit(name, currency string, epoch time.Time, contracts []CDS) (*Credit, error) {
	if name == "" || len(contracts) == 0 {
		return nil, fmt.Errorf("credit bootstrap needs a name and contracts: %w", calib.ErrInvalidInput)
	}
	nodes := make([]time.Time, len(contracts))
	prev := epoch
	for i, c := range contracts {
		if c.Premium == nil || c.Premium.Currency() != currency {
			return nil, fmt.Errorf("contract %s: premium leg missing or not in %s: %w", c.Tenor, currency, calib.ErrInvalidInput)
		}
		nodes[i] = c.Premium.Maturity()
		if !nodes[i].After(prev) {
			return nil, fmt.Errorf("contract %s matures %s, not after %s: %w", c.Tenor, nodes[i].Format(utils.DateLayout), prev.Format(utils.DateLayout), calib.ErrInvalidInput)
		}
		prev = nodes[i]
	}
	return &Credit{
		name:      name,
		currency:  currency,
		epoch:     epoch,
		contracts: append([]CDS(nil), contracts...),
		nodes:     nodes,
	}, nil
}

func (g *Credit) Label() market.Label { return market.CreditLabel(g.name) }
func (g *Credit) Name() string        { return g.name }

func (g *Credit) Tenors() []string {
	out := make([]string, len(g.contracts))
	for i, c := range g.contracts {
		out[i] = c.Tenor
	}
	return out
}

// Recovery is the recovery rate the strip assumes: the context's recovery
// surface for the name at the epoch, or the configured default.
func (g *Credit) Recovery(mc *market.Context) float64 {
	if s, ok := mc.Surface(market.RecoveryLabel(g.name)); ok {
		return s.Value(g.epoch)
	}
	return config.GetConfig().DefaultRecovery
}

func (g *Credit) Calibrate(mc *market.Context, quotes []float64) (market.Curve, error) {
	c, err := g.Solve(mc, quotes)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Solve strips the hazards. Each node is solved by Newton iterations on the
// contract's PV with a forward-difference derivative, starting from the
// credit-triangle guess spread/(1-R).
func (g *Credit) Solve(mc *market.Context, quotes []float64) (*curve.Credit, error) {
	if len(quotes) != len(g.contracts) {
		return nil, fmt.Errorf("%d spreads for %d contracts: %w", len(quotes), len(g.contracts), calib.ErrInvalidInput)
	}
	funding, ok := mc.FundingCurve(g.currency)
	if !ok {
		return nil, fmt.Errorf("credit %s needs funding %s: %w", g.name, g.currency, calib.ErrUnresolvable)
	}
	recovery := g.Recovery(mc)
	cfg := config.GetConfig()
	tol := math.Max(cfg.ConvergenceTolerance, 1e-14)
	const eps = 1e-7

	hazards := make([]float64, 0, len(g.nodes))
	var solved *curve.Credit
	for k, spread := range quotes {
		if !utils.IsFinite(spread) {
			return nil, fmt.Errorf("spread %s = %v: %w", g.contracts[k].Tenor, spread, calib.ErrInvalidInput)
		}
		pv := func(h float64) (float64, *curve.Credit, error) {
			c, err := curve.NewCredit(g.name, g.epoch, g.nodes[:k+1], append(hazards[:k:k], h), recovery)
			if err != nil {
				return 0, nil, err
			}
			v, err := g.contractPV(mc, funding, c, k, spread)
			return v, c, err
		}

		h := math.Max(spread/(1-recovery), 0)
		done := false
		for iter := 0; iter < cfg.MaxBootstrapIterations; iter++ {
			f, c, err := pv(h)
			if err != nil {
				return nil, err
			}
			if math.Abs(f) < tol {
				solved, done = c, true
				break
			}
			up, _, err := pv(h + eps)
			if err != nil {
				return nil, err
			}
			deriv := (up - f) / eps
			if math.Abs(deriv) < cfg.DerivativeThreshold {
				break
			}
			h = math.Max(h-f/deriv, 0)
		}
		if !done {
			return nil, fmt.Errorf("credit %s node %s: %w", g.name, g.contracts[k].Tenor, ErrNotConverged)
		}
		hazards = append(hazards, h)
	}
	slog.Debug("credit curve solved", "name", g.name, "nodes", len(hazards), "recovery", recovery)
	return solved, nil
}

// ParSpread is the running spread that prices contract k at zero on c.
func (g *Credit) ParSpread(mc *market.Context, c market.CreditCurve, k int) (float64, error) {
	funding, ok := mc.FundingCurve(g.currency)
	if !ok {
		return 0, fmt.Errorf("credit %s needs funding %s: %w", g.name, g.currency, calib.ErrUnresolvable)
	}
	rpv01, err := g.riskyAnnuity(mc, c, k)
	if err != nil {
		return 0, err
	}
	return g.protection(funding, c, k) / rpv01, nil
}

// contractPV is premium minus protection for a protection seller.
func (g *Credit) contractPV(mc *market.Context, funding market.FundingCurve, c market.CreditCurve, k int, spread float64) (float64, error) {
	rpv01, err := g.riskyAnnuity(mc, c, k)
	if err != nil {
		return 0, err
	}
	return spread*rpv01 - g.protection(funding, c, k), nil
}

// riskyAnnuity values the unit-coupon premium leg with survival weighting.
func (g *Credit) riskyAnnuity(mc *market.Context, c market.CreditCurve, k int) (float64, error) {
	snap := mc.Snapshot()
	snap.SetCreditCurve(c)
	v, ok := g.contracts[k].Premium.WithCoupon(1).Value(g.epoch, snap)
	if !ok || !v.Risky {
		return 0, fmt.Errorf("premium leg %s: %w", g.contracts[k].Tenor, calib.ErrUnresolvable)
	}
	return v.RiskyDirtyPV, nil
}

// protection is (1-R)·Σ DF(mid)·(S(start) − S(end)) over the premium periods.
func (g *Credit) protection(funding market.FundingCurve, c market.CreditCurve, k int) float64 {
	var pv float64
	for _, p := range g.contracts[k].Premium.Periods() {
		start := p.Start()
		if start.Before(g.epoch) {
			start = g.epoch
		}
		if !p.End().After(start) {
			continue
		}
		mid := start.Add(p.End().Sub(start) / 2)
		pv += funding.DF(mid) * (c.Survival(start) - c.Survival(p.End())) * (1 - c.Recovery(mid))
	}
	return pv
}
