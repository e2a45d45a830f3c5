package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencueforunreal/ue-worker-pool/internal/config"
)

var log zerolog.Logger

// Init configures the package-global sink from the daemon's own logging
// config (populated from LOG_LEVEL/LOG_PRETTY), rather than loose args, so
// the worker pool and the one-shot runner both wire it straight off the
// config they already loaded.
func Init(cfg config.LoggingConfig) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	log = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

func Get() *zerolog.Logger {
	return &log
}

func WithComponent(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func WithWorker(workerID string) zerolog.Logger {
	return log.With().Str("worker_id", workerID).Logger()
}

func WithTask(taskID string) zerolog.Logger {
	return log.With().Str("task_id", taskID).Logger()
}

// WithWorkerTask scopes a logger to a worker actively holding a lease on a
// task, for call sites where both ids are known at once (the done handler and
// the reconcile loop's dead-worker requeue) and a single combined context
// beats two separate lines.
func WithWorkerTask(workerID, taskID string) zerolog.Logger {
	return log.With().Str("worker_id", workerID).Str("task_id", taskID).Logger()
}

// WithJob scopes a logger to a render job, for the one-shot runner path that
// only ever knows the job id, not a specific worker.
func WithJob(jobID string) zerolog.Logger {
	return log.With().Str("job_id", jobID).Logger()
}

// Convenience methods
func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
