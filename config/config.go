package config

// Config holds solver, valuation and scenario parameters shared by the
// bootstrap generators, the stream evaluator and the scenario containers.
type Config struct {
	// ConvergenceTolerance is the notional-normalised residual tolerance for
	// Newton bootstraps.
	ConvergenceTolerance float64 `mapstructure:"convergence_tolerance" yaml:"convergence_tolerance"`

	// MaxBootstrapIterations bounds the Newton loop of every generator.
	MaxBootstrapIterations int `mapstructure:"max_bootstrap_iterations" yaml:"max_bootstrap_iterations"`

	// DampingFactor caps a Newton step at DampingFactor × |node|.
	DampingFactor float64 `mapstructure:"damping_factor" yaml:"damping_factor"`

	// MinDiscountFactor floors discount factors during the solve.
	MinDiscountFactor float64 `mapstructure:"min_discount_factor" yaml:"min_discount_factor"`

	// DerivativeThreshold is the minimum derivative magnitude in 1-D solves.
	DerivativeThreshold float64 `mapstructure:"derivative_threshold" yaml:"derivative_threshold"`

	// IntegrationSteps is the number of trapezoid steps used to integrate
	// covariance surfaces for quanto and convexity factors.
	IntegrationSteps int `mapstructure:"integration_steps" yaml:"integration_steps"`

	// DefaultRecovery is used by the credit bootstrap when the context has no
	// recovery surface for the reference entity.
	DefaultRecovery float64 `mapstructure:"default_recovery" yaml:"default_recovery"`

	// Parallelism bounds concurrent tenor-bump calibrations. 1 runs them serially.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	ConvergenceTolerance:   1e-12,
	MaxBootstrapIterations: 100,
	DampingFactor:          0.5,
	MinDiscountFactor:      1e-9,
	DerivativeThreshold:    1e-15,
	IntegrationSteps:       32,
	DefaultRecovery:        0.4,
	Parallelism:            1,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}
