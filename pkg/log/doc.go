/*
Package log provides structured logging for the search core using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("node ready")

	collLog := log.WithCollection("products")
	collLog.Info().Int64("seq", 42).Msg("document indexed")

	reqLog := log.WithRequestID(req.ID)
	reqLog.Error().Err(err).Msg("search failed")

# Context Loggers

  - WithComponent: tags logs with a subsystem name (indexer, cluster, query)
  - WithCollection: tags logs with the collection name a write/search targets
  - WithRequestID: tags logs with the batched-indexer request id for a write,
    so every chunk and retry of the same request can be correlated

# Design Patterns

Global Logger Pattern: a single package-level Logger instance, initialized
once via Init and read from every package without being passed around.

Context Logger Pattern: component/collection/request loggers are child
loggers created with .With() so the extra fields ride along on every line
without repeating them at each call site.
*/
package log
