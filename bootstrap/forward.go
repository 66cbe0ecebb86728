package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/meenmo/mcurve/calib"
	"github.com/meenmo/mcurve/curve"
	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/stream"
)

// Forward calibrates the forward curve of one index against the funding
// curves already in the context. The node of each instrument's maturity holds
// the forward of the period ending there, so the rows are linear in the node
// rates and one solve suffices.
type Forward struct {
	index       market.Index
	epoch       time.Time
	instruments []stream.Instrument
	nodes       []time.Time
}

func NewForward(index market.Index, epoch time.Time, instruments []stream.Instrument) (*Forward, error) {
	if index.IsZero() {
		return nil, fmt.Errorf("forward bootstrap without index: %w", calib.ErrInvalidInput)
	}
	nodes, err := maturities(epoch, instruments)
	if err != nil {
		return nil, err
	}
	return &Forward{
		index:       index,
		epoch:       epoch,
		instruments: append([]stream.Instrument(nil), instruments...),
		nodes:       nodes,
	}, nil
}

func (f *Forward) Label() market.Label { return market.ForwardLabel(f.index) }
func (f *Forward) Tenors() []string    { return tenors(f.instruments) }

func (f *Forward) Calibrate(mc *market.Context, quotes []float64) (market.Curve, error) {
	c, err := f.Solve(mc, quotes)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (f *Forward) Solve(mc *market.Context, quotes []float64) (*curve.Forward, error) {
	rows, err := instrumentRows(f.instruments, f.epoch, mc, f.Label(), quotes)
	if err != nil {
		return nil, err
	}
	basis, err := curve.ForwardNodeBasis(f.index, f.epoch, f.nodes)
	if err != nil {
		return nil, err
	}
	rates, err := calib.System{Rows: rows}.SolveLinear(len(f.nodes), basis)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Label(), err)
	}
	slog.Debug("forward curve solved", "index", f.index.Name, "nodes", len(f.nodes))
	return curve.NewForward(f.index, f.epoch, f.nodes, rates)
}
