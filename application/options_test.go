package application

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/clock"
	"github.com/felixgeelhaar/agent-runtime/domain/config"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg ServerConfig
	if err := cfg.applyDefaults(); err != nil {
		t.Fatalf("applyDefaults() error = %v", err)
	}

	if cfg.MaxQueueSize != DefaultMaxQueueSize {
		t.Errorf("MaxQueueSize = %d, want %d", cfg.MaxQueueSize, DefaultMaxQueueSize)
	}
	if cfg.Mode != ModeAuto {
		t.Errorf("Mode = %s, want auto", cfg.Mode)
	}
	if cfg.CallTimeout != DefaultCallTimeout {
		t.Errorf("CallTimeout = %v, want %v", cfg.CallTimeout, DefaultCallTimeout)
	}
	if _, ok := cfg.Strategy.(DirectStrategy); !ok {
		t.Errorf("Strategy = %T, want DirectStrategy", cfg.Strategy)
	}
	if _, ok := cfg.Emitter.(telemetry.Noop); !ok {
		t.Errorf("Emitter = %T, want Noop", cfg.Emitter)
	}
	if _, ok := cfg.Clock.(clock.System); !ok {
		t.Errorf("Clock = %T, want System", cfg.Clock)
	}
	if _, ok := cfg.IDs.(ident.UUID); !ok {
		t.Errorf("IDs = %T, want UUID", cfg.IDs)
	}
	if _, ok := cfg.Validator.(agent.SchemaValidator); !ok {
		t.Errorf("Validator = %T, want SchemaValidator", cfg.Validator)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	rc := config.Default()
	rc.InstanceID = "node-1"
	rc.Server.MaxQueueSize = 42
	rc.Server.Mode = string(ModeStep)
	rc.Server.Strategy = StrategyHaltOnError
	rc.Server.CallTimeout = config.Duration(2 * time.Second)
	rc.Server.Thread = true
	rc.Server.Debug = true
	rc.Server.DebugBufferSize = 8
	rc.Checkpoint.RestoreOnStart = true

	opts, err := OptionsFromConfig(rc)
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}

	var cfg ServerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.applyDefaults(); err != nil {
		t.Fatalf("applyDefaults() error = %v", err)
	}

	if cfg.InstanceID != "node-1" {
		t.Errorf("InstanceID = %q, want node-1", cfg.InstanceID)
	}
	if cfg.MaxQueueSize != 42 {
		t.Errorf("MaxQueueSize = %d, want 42", cfg.MaxQueueSize)
	}
	if cfg.Mode != ModeStep {
		t.Errorf("Mode = %s, want step", cfg.Mode)
	}
	if _, ok := cfg.Strategy.(HaltOnErrorStrategy); !ok {
		t.Errorf("Strategy = %T, want HaltOnErrorStrategy", cfg.Strategy)
	}
	if cfg.CallTimeout != 2*time.Second {
		t.Errorf("CallTimeout = %v, want 2s", cfg.CallTimeout)
	}
	if !cfg.Thread || !cfg.Debug || cfg.DebugBufferSize != 8 || !cfg.RestoreOnStart {
		t.Errorf("cfg = %+v, want thread, debug(8) and restore enabled", cfg)
	}
}

func TestOptionsFromConfig_UnknownStrategy(t *testing.T) {
	t.Parallel()

	rc := config.Default()
	rc.Server.Strategy = "parallel"
	if _, err := OptionsFromConfig(rc); err == nil {
		t.Error("OptionsFromConfig() with unknown strategy should fail")
	}
}
