package authflow

import (
	"github.com/redis/go-redis/v9"

	"github.com/viktorspaces/authflow/session"
)

// Builder defines a public type used by authflow APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config     Config
	capability Capability
	redis      *redis.Client
	auditSink  AuditSink
	verifier   *session.Verifier

	built bool
}

// New starts a Builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCapability supplies the external auth capability. Required.
func (b *Builder) WithCapability(c Capability) *Builder {
	b.capability = c
	return b
}

// WithRedis enables step persistence on the given client. Without it, flows
// run purely in memory and Resume is unavailable.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAuditSink supplies the destination for audit events. Ignored unless
// auditing is enabled in the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSessionVerifier enables [Flows.UserFromToken].
func (b *Builder) WithSessionVerifier(v *session.Verifier) *Builder {
	b.verifier = v
	return b
}

// Build validates the configuration and assembles the Flows aggregate. A
// Builder builds at most once.
func (b *Builder) Build() (*Flows, error) {
	if b == nil {
		return nil, ErrBuilderReused
	}
	if b.built {
		return nil, ErrBuilderReused
	}
	if b.capability == nil {
		return nil, ErrCapabilityRequired
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	b.built = true

	f := &Flows{
		config:     b.config,
		capability: b.capability,
		audit:      newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:    NewMetrics(b.config.Metrics),
		verifier:   b.verifier,
	}
	if b.redis != nil {
		f.stepStore = newStepStore(b.redis, b.config.StepStore.RedisPrefix)
	}

	return f, nil
}
