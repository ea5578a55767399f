/*
Package log provides structured logging built on zerolog.

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("scheduler admitted job")
	log.Warn("worker heartbeat missed")
	log.Errorf("failed to spawn coordinator process", err)

Context loggers carry identifying fields into every subsequent log
line so callers don't repeat them:

	jobLog := log.WithJobName(job.Name)
	jobLog.Info().Msg("job queued")

	workerLog := log.WithWorker(identity)
	workerLog.Debug().Msg("worker_available received")

# Design

A single package-level zerolog.Logger is initialized once via Init and
read by every other package. Component- and entity-scoped child
loggers (WithComponent, WithJobName, WithTaskName, WithWorker) are
cheap views over it — zerolog.Logger is a value type, so creating one
never mutates the global logger other goroutines are using.
*/
package log
