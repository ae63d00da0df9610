package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/junioryono/di/policy"
)

// Option configures the injector built by Collection.Build.
type Option interface {
	apply(*options)
}

// options holds build configuration.
type options struct {
	config       Config
	logger       *zap.Logger
	registerer   prometheus.Registerer
	introspector Introspector
	policy       *policy.Predicate
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

func defaultOptions() *options {
	return &options{
		config: DefaultConfig(),
	}
}

// WithLogger sets the structured logger. The default discards all output
// unless Config.LogLevel is set.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// WithRegisterer registers the injector's Prometheus collectors with reg.
// Collectors already registered by another injector are shared.
func WithRegisterer(reg prometheus.Registerer) Option {
	return optionFunc(func(opts *options) {
		opts.registerer = reg
	})
}

// WithIntrospector replaces the constructor introspection used for types
// without a binding. The default consults constructors registered with
// Collection.AddConstructors.
func WithIntrospector(i Introspector) Option {
	return optionFunc(func(opts *options) {
		opts.introspector = i
	})
}

// WithPolicy installs a predicate that must hold for every key resolved,
// including the root. The argument placeholder (policy.IsArgBound) refers to
// the key being resolved. A violation fails the build with
// PolicyViolationError before any provider runs.
//
// Example:
//
//	// Every dependency must be explicitly bound; the root may be introspected.
//	di.WithPolicy(policy.Or(policy.IsRoot(), policy.IsArgBound()))
func WithPolicy(pred policy.Predicate) Option {
	return optionFunc(func(opts *options) {
		p := pred
		opts.policy = &p
	})
}

// WithConfig replaces the injector configuration.
func WithConfig(cfg Config) Option {
	return optionFunc(func(opts *options) {
		opts.config = cfg
	})
}

// resolve fills defaults that depend on other options.
func (o *options) resolve() error {
	if err := o.config.Validate(); err != nil {
		return err
	}

	if o.policy != nil {
		if err := o.policy.Validate(); err != nil {
			return err
		}
	}

	if o.logger == nil {
		logger, err := o.config.newLogger()
		if err != nil {
			return err
		}
		o.logger = logger
	}

	return nil
}
