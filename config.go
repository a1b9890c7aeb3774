package authflow

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Flow      FlowConfig
	StepStore StepStoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowConfig defines a public type used by authflow APIs.
//
// FlowConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type FlowConfig struct {
	// SandboxSuffix routes matching sign-up addresses to the sandbox
	// provider, which auto-verifies. Matching is case-insensitive on the
	// full suffix, e.g. "@test.example.com".
	SandboxSuffix string

	// MinPasswordLength gates sign-up locally before the capability is
	// consulted.
	MinPasswordLength int

	// PrefillResetEmail carries the email back to StepForgot when a
	// reset-verification submit is rejected, so the user can re-request a
	// code without retyping.
	PrefillResetEmail bool
}

/*
====================================
STEP STORE CONFIG
====================================
*/

// StepStoreConfig defines a public type used by authflow APIs.
//
// StepStoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StepStoreConfig struct {
	RedisPrefix string

	// StepTTL bounds how long a parked form position survives. It mirrors
	// the verification code validity window; a step older than the code it
	// waits for is useless.
	StepTTL time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by authflow APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by authflow APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Flow: FlowConfig{
			SandboxSuffix:     "",
			MinPasswordLength: 8,
			PrefillResetEmail: true,
		},
		StepStore: StepStoreConfig{
			RedisPrefix: "afs",
			StepTTL:     15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.Flow.MinPasswordLength < 0 {
		return errors.New("negative minimum password length")
	}
	if cfg.Flow.SandboxSuffix != "" && !strings.Contains(cfg.Flow.SandboxSuffix, "@") {
		return errors.New("sandbox suffix must contain '@'")
	}
	if cfg.StepStore.StepTTL < 0 {
		return errors.New("negative step TTL")
	}
	if cfg.StepStore.RedisPrefix == "" {
		return errors.New("empty step store redis prefix")
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize < 0 {
		return errors.New("negative audit buffer size")
	}
	return nil
}
