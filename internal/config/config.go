// Package config loads the daemon's configuration from the environment
// variables named in SPEC_FULL.md §6, using viper for binding/defaults the
// way the teacher lineage's config package does, but against a flat,
// externally-defined env var contract rather than a TASKQUEUE_-prefixed
// internal convention.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// WorkerPoolConfig configures the daemon's HTTP surface, UE process
// resolution, pool sizing, and timeouts. Field names and defaults are
// grounded on original_source's WorkerPoolConfig.from_env.
type WorkerPoolConfig struct {
	Host string
	Port int

	UERoot        string
	UProject      string
	ExecutorClass string
	GameModeClass string

	MinWorkers int
	MaxWorkers int

	WorkerStartupTimeout time.Duration
	// WorkerIdleTimeout is parsed and recognized (the env var is part of the
	// documented contract) but intentionally unused by the reconcile loop:
	// see SPEC_FULL.md §9 Open Questions / DESIGN.md. Treat as a future
	// extension, not a bug.
	WorkerIdleTimeout time.Duration
	HeartbeatTimeout  time.Duration
	TaskTimeout       time.Duration

	DataRoot string
	LogRoot  string
}

// RunnerConfig configures the one-shot task runner's defaults, layered on
// top of CLI flags (CLI > env > configured default, per §4.5).
type RunnerConfig struct {
	UEUProjectDefault string
	UECmdPathDefault  string
	UEProjectRoot     string
	WrapperHeadless   bool
}

// LoggingConfig configures the ambient zerolog sink.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// MetricsConfig configures the /metrics exposition.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// CuebotConfig is consumed only by the submitter's `test` subcommand to
// report which Cuebot it would target; this system never opens a real
// OpenCue connection (§1 out of scope).
type CuebotConfig struct {
	Host string
	Port int
	Show string
}

type Config struct {
	WorkerPool WorkerPoolConfig
	Runner     RunnerConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Cuebot     CuebotConfig
}

// Load reads configuration from the process environment, applying the
// defaults documented in SPEC_FULL.md §6.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		WorkerPool: WorkerPoolConfig{
			Host:                 v.GetString("WORKER_POOL_HOST"),
			Port:                 v.GetInt("WORKER_POOL_PORT"),
			UERoot:               v.GetString("UE_ROOT"),
			UProject:             v.GetString("UPROJECT"),
			ExecutorClass:        v.GetString("EXECUTOR_CLASS"),
			GameModeClass:        v.GetString("GAME_MODE_CLASS"),
			MinWorkers:           v.GetInt("MIN_WORKERS"),
			MaxWorkers:           v.GetInt("MAX_WORKERS"),
			WorkerStartupTimeout: secondsDuration(v, "WORKER_STARTUP_TIMEOUT"),
			WorkerIdleTimeout:    secondsDuration(v, "WORKER_IDLE_TIMEOUT"),
			HeartbeatTimeout:     secondsDuration(v, "HEARTBEAT_TIMEOUT"),
			TaskTimeout:          secondsDuration(v, "TASK_TIMEOUT"),
			DataRoot:             v.GetString("DATA_ROOT"),
			LogRoot:              v.GetString("LOG_ROOT"),
		},
		Runner: RunnerConfig{
			UEUProjectDefault: v.GetString("UE_UPROJECT"),
			UECmdPathDefault:  v.GetString("UE_CMD_PATH"),
			UEProjectRoot:     v.GetString("UE_PROJECT_ROOT"),
			WrapperHeadless:   headlessEnabled(v.GetString("UE_WRAPPER_HEADLESS")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
		Cuebot: CuebotConfig{
			Host: v.GetString("CUEBOT_HOST"),
			Port: v.GetInt("CUEBOT_PORT"),
			Show: v.GetString("OPENCUE_SHOW"),
		},
	}
}

// secondsDuration reads a viper key holding a bare number of seconds (the
// wire convention throughout SPEC_FULL.md's env vars) as a time.Duration.
func secondsDuration(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetFloat64(key) * float64(time.Second))
}

// headlessEnabled mirrors original_source's _headless_enabled: headless is
// the default, disabled only by an explicit falsy value.
func headlessEnabled(raw string) bool {
	switch raw {
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("WORKER_POOL_HOST", "0.0.0.0")
	v.SetDefault("WORKER_POOL_PORT", 9100)
	v.SetDefault("UE_ROOT", "")
	v.SetDefault("UPROJECT", "")
	v.SetDefault("EXECUTOR_CLASS", "/Script/OpenCueForUnreal.MoviePipelineOpenCuePIEExecutor")
	v.SetDefault("GAME_MODE_CLASS", "/Script/MovieRenderPipelineCore.MoviePipelineGameMode")
	v.SetDefault("MIN_WORKERS", 1)
	v.SetDefault("MAX_WORKERS", 4)
	v.SetDefault("WORKER_STARTUP_TIMEOUT", 300)
	v.SetDefault("WORKER_IDLE_TIMEOUT", 300)
	v.SetDefault("HEARTBEAT_TIMEOUT", 60)
	v.SetDefault("TASK_TIMEOUT", 3600)
	v.SetDefault("DATA_ROOT", "./data")
	v.SetDefault("LOG_ROOT", "./logs")

	v.SetDefault("UE_UPROJECT", "")
	v.SetDefault("UE_CMD_PATH", "")
	v.SetDefault("UE_PROJECT_ROOT", "")
	v.SetDefault("UE_WRAPPER_HEADLESS", "1")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("CUEBOT_HOST", "localhost")
	v.SetDefault("CUEBOT_PORT", 8443)
	v.SetDefault("OPENCUE_SHOW", "UE_RENDER")
}
