/*
Package log provides structured logging for the nodegrid agent, built on
zerolog.

Call Init once at startup, then derive per-component child loggers:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("lifecycle")
	logger.Info().Str("descriptor", d.String()).Msg("container created")

Console output (human-readable, RFC3339 timestamps) is the default;
JSONOutput switches to newline-delimited JSON for log shippers.

Child logger helpers attach the fields used throughout the agent:
component, node_id and descriptor.
*/
package log
