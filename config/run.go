package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/meenmo/mcurve/market"
	"github.com/meenmo/mcurve/utils"
)

// EnvPrefix prefixes environment overrides, e.g. MCURVE_SCENARIO_BUMP.
const EnvPrefix = "MCURVE"

// Curve kinds a run can calibrate.
const (
	CurveFunding = "funding"
	CurveForward = "forward"
	CurveCredit  = "credit"
)

// Run is a calibration and valuation job read from a YAML file.
type Run struct {
	AsOf      string       `mapstructure:"as_of" yaml:"as_of"`
	Curve     CurveSpec    `mapstructure:"curve" yaml:"curve"`
	Upstream  Upstream     `mapstructure:"upstream" yaml:"upstream"`
	Scenario  ScenarioSpec `mapstructure:"scenario" yaml:"scenario"`
	Portfolio []TradeSpec  `mapstructure:"portfolio" yaml:"portfolio,omitempty"`
	Solver    Config       `mapstructure:"solver" yaml:"solver"`
	Logging   LoggingSpec  `mapstructure:"logging" yaml:"logging"`
	Store     StoreSpec    `mapstructure:"store" yaml:"store"`
}

// CurveSpec describes the curve to calibrate and its quoted instruments.
// Funding and forward curves are calibrated from fixed-vs-float swaps quoted
// on their par rate, credit curves from CDS par spreads. A named swap
// convention (e.g. ESTR_OIS) replaces both leg specs.
type CurveSpec struct {
	Kind       string      `mapstructure:"kind" yaml:"kind"`
	Currency   string      `mapstructure:"currency" yaml:"currency"`
	Name       string      `mapstructure:"name" yaml:"name,omitempty"`
	Notional   float64     `mapstructure:"notional" yaml:"notional"`
	Convention string      `mapstructure:"convention" yaml:"convention,omitempty"`
	FixedLeg   LegSpec     `mapstructure:"fixed_leg" yaml:"fixed_leg,omitempty"`
	FloatLeg   LegSpec     `mapstructure:"float_leg" yaml:"float_leg,omitempty"`
	Quotes     []QuoteSpec `mapstructure:"quotes" yaml:"quotes"`
}

type LegSpec struct {
	Index           string `mapstructure:"index" yaml:"index,omitempty"`
	DayCount        string `mapstructure:"day_count" yaml:"day_count"`
	FrequencyMonths int    `mapstructure:"frequency_months" yaml:"frequency_months"`
	Calendar        string `mapstructure:"calendar" yaml:"calendar"`
}

type QuoteSpec struct {
	Tenor string  `mapstructure:"tenor" yaml:"tenor"`
	Value float64 `mapstructure:"value" yaml:"value"`
}

// Upstream holds flat curves loaded into the market context before
// calibrating. Map keys are currencies, index names or reference entities.
type Upstream struct {
	Funding  map[string]float64 `mapstructure:"funding" yaml:"funding,omitempty"`
	Govvie   map[string]float64 `mapstructure:"govvie" yaml:"govvie,omitempty"`
	Forward  map[string]float64 `mapstructure:"forward" yaml:"forward,omitempty"`
	Recovery map[string]float64 `mapstructure:"recovery" yaml:"recovery,omitempty"`
}

type ScenarioSpec struct {
	Mask         string       `mapstructure:"mask" yaml:"mask"`
	Bump         float64      `mapstructure:"bump" yaml:"bump"`
	RecoveryBump float64      `mapstructure:"recovery_bump" yaml:"recovery_bump"`
	Custom       []CustomSpec `mapstructure:"custom" yaml:"custom,omitempty"`
}

type CustomSpec struct {
	Name   string      `mapstructure:"name" yaml:"name"`
	Tweaks []TweakSpec `mapstructure:"tweaks" yaml:"tweaks"`
}

type TweakSpec struct {
	Target   string   `mapstructure:"target" yaml:"target"`
	Currency string   `mapstructure:"currency" yaml:"currency,omitempty"`
	Kind     string   `mapstructure:"kind" yaml:"kind,omitempty"`
	Amount   float64  `mapstructure:"amount" yaml:"amount"`
	Only     []string `mapstructure:"only" yaml:"only,omitempty"`
}

// TradeSpec is a fixed-vs-float swap valued by `mcurve value`. Direction is
// PAY (pay fixed) or REC.
type TradeSpec struct {
	Name      string  `mapstructure:"name" yaml:"name"`
	Tenor     string  `mapstructure:"tenor" yaml:"tenor"`
	FixedRate float64 `mapstructure:"fixed_rate" yaml:"fixed_rate"`
	Notional  float64 `mapstructure:"notional" yaml:"notional"`
	Direction string  `mapstructure:"direction" yaml:"direction"`
}

type LoggingSpec struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type StoreSpec struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultRun is a EUR funding curve from ESTR OIS quotes with every rates
// bump enabled.
func DefaultRun() *Run {
	return &Run{
		AsOf: "2026-03-02",
		Curve: CurveSpec{
			Kind:     CurveFunding,
			Currency: "EUR",
			Notional: 1e6,
			FixedLeg: LegSpec{DayCount: string(market.Act360), FrequencyMonths: 12, Calendar: "TARGET"},
			FloatLeg: LegSpec{Index: market.ESTR.Name, DayCount: string(market.Act360), FrequencyMonths: 12, Calendar: "TARGET"},
			Quotes: []QuoteSpec{
				{Tenor: "1Y", Value: 0.0215},
				{Tenor: "2Y", Value: 0.0222},
				{Tenor: "5Y", Value: 0.0238},
				{Tenor: "10Y", Value: 0.0261},
			},
		},
		Scenario: ScenarioSpec{
			Mask:         "FLAT_UP|FLAT_DN|TENOR_UP|TENOR_DN",
			Bump:         0.0001,
			RecoveryBump: 0.05,
		},
		Portfolio: []TradeSpec{
			{Name: "payer-7y", Tenor: "7Y", FixedRate: 0.025, Notional: 1e7, Direction: "PAY"},
		},
		Solver:  DefaultConfig,
		Logging: LoggingSpec{Level: "info", Format: "text"},
		Store:   StoreSpec{Path: "mcurve.db"},
	}
}

func setRunDefaults(v *viper.Viper) {
	d := DefaultRun()
	v.SetDefault("curve.notional", d.Curve.Notional)
	v.SetDefault("scenario.bump", d.Scenario.Bump)
	v.SetDefault("scenario.recovery_bump", d.Scenario.RecoveryBump)
	v.SetDefault("solver.convergence_tolerance", DefaultConfig.ConvergenceTolerance)
	v.SetDefault("solver.max_bootstrap_iterations", DefaultConfig.MaxBootstrapIterations)
	v.SetDefault("solver.damping_factor", DefaultConfig.DampingFactor)
	v.SetDefault("solver.min_discount_factor", DefaultConfig.MinDiscountFactor)
	v.SetDefault("solver.derivative_threshold", DefaultConfig.DerivativeThreshold)
	v.SetDefault("solver.integration_steps", DefaultConfig.IntegrationSteps)
	v.SetDefault("solver.default_recovery", DefaultConfig.DefaultRecovery)
	v.SetDefault("solver.parallelism", DefaultConfig.Parallelism)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("store.path", d.Store.Path)
}

// Load reads a run file. Environment variables override file values, e.g.
// MCURVE_STORE_PATH or MCURVE_SOLVER_PARALLELISM.
func Load(path string) (*Run, error) {
	v := viper.New()
	setRunDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read run file %s: %w", path, err)
	}

	var r Run
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("unmarshal run file: %w", err)
	}
	r.Upstream.normalise()
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run file %s: %w", path, err)
	}
	return &r, nil
}

// normalise restores upper-case map keys; viper lower-cases every key.
func (u *Upstream) normalise() {
	for _, m := range []*map[string]float64{&u.Funding, &u.Govvie, &u.Forward, &u.Recovery} {
		if *m == nil {
			continue
		}
		out := make(map[string]float64, len(*m))
		for k, v := range *m {
			out[strings.ToUpper(k)] = v
		}
		*m = out
	}
}

// Save writes the run as YAML.
func (r *Run) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run file: %w", err)
	}
	return nil
}

// Validate checks the fields a calibration cannot start without. Every
// problem found is reported.
func (r *Run) Validate() error {
	var errs []error
	if _, err := utils.ParseDate(r.AsOf); err != nil {
		errs = append(errs, fmt.Errorf("as_of: %w", err))
	}

	c := r.Curve
	switch c.Kind {
	case CurveFunding, CurveForward:
		if c.Convention != "" {
			sc, ok := market.LookupSwapConvention(c.Convention)
			if !ok {
				errs = append(errs, fmt.Errorf("curve.convention %q is not one of %s", c.Convention, strings.Join(market.SwapConventionNames(), ", ")))
			} else if c.Currency != "" && sc.Float.Index.Currency != strings.ToUpper(c.Currency) {
				errs = append(errs, fmt.Errorf("curve.convention %s quotes %s swaps, not %s", sc.Name, sc.Float.Index.Currency, c.Currency))
			}
			break
		}
		if _, ok := market.LookupIndex(c.FloatLeg.Index); !ok {
			errs = append(errs, fmt.Errorf("curve.float_leg.index %q is not a known index", c.FloatLeg.Index))
		}
		if c.FloatLeg.FrequencyMonths <= 0 {
			errs = append(errs, errors.New("curve.float_leg.frequency_months must be positive"))
		}
		if c.FixedLeg.FrequencyMonths <= 0 {
			errs = append(errs, errors.New("curve.fixed_leg.frequency_months must be positive"))
		}
	case CurveCredit:
		if c.Name == "" {
			errs = append(errs, errors.New("curve.name is required for credit curves"))
		}
		if c.FixedLeg.FrequencyMonths <= 0 {
			errs = append(errs, errors.New("curve.fixed_leg.frequency_months must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("curve.kind %q must be funding, forward or credit", c.Kind))
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("curve.currency is required"))
	}
	if c.Notional <= 0 {
		errs = append(errs, errors.New("curve.notional must be positive"))
	}
	if len(c.Quotes) == 0 {
		errs = append(errs, errors.New("curve.quotes is empty"))
	}
	seen := make(map[string]bool, len(c.Quotes))
	for _, q := range c.Quotes {
		if seen[q.Tenor] {
			errs = append(errs, fmt.Errorf("curve.quotes: tenor %s repeated", q.Tenor))
		}
		seen[q.Tenor] = true
		if !utils.IsFinite(q.Value) {
			errs = append(errs, fmt.Errorf("curve.quotes: tenor %s is not finite", q.Tenor))
		}
	}

	if r.Scenario.Bump < 0 || r.Scenario.RecoveryBump < 0 {
		errs = append(errs, errors.New("scenario bumps must not be negative"))
	}
	for _, cs := range r.Scenario.Custom {
		if cs.Name == "" {
			errs = append(errs, errors.New("scenario.custom: name is required"))
		}
	}
	for _, t := range r.Portfolio {
		if d := strings.ToUpper(t.Direction); d != "PAY" && d != "REC" {
			errs = append(errs, fmt.Errorf("portfolio %s: direction %q must be PAY or REC", t.Name, t.Direction))
		}
		if t.Notional <= 0 {
			errs = append(errs, fmt.Errorf("portfolio %s: notional must be positive", t.Name))
		}
	}

	if r.Solver.MaxBootstrapIterations <= 0 {
		errs = append(errs, errors.New("solver.max_bootstrap_iterations must be positive"))
	}
	if r.Solver.ConvergenceTolerance <= 0 {
		errs = append(errs, errors.New("solver.convergence_tolerance must be positive"))
	}
	if r.Solver.DefaultRecovery < 0 || r.Solver.DefaultRecovery >= 1 {
		errs = append(errs, errors.New("solver.default_recovery must be in [0, 1)"))
	}
	return errors.Join(errs...)
}
