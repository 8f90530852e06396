/*
Package log provides structured logging for nimbusfs using zerolog.

The global Logger is initialized once via Init and is safe for concurrent
use from every package: the synchronizer, the server filesystem, the RPC
layer, and the kernel-shim adapter all log through it rather than
threading a logger through every call.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	log.Info("nimbusfsd starting")

	rpcLog := log.WithRPC("ApplyJournal")
	rpcLog.Info().Int("ops", len(ops)).Msg("batch applied")

	entLog := log.WithEntityID(id)
	entLog.Warn().Err(err).Msg("deferred apply conflicted")

# Context loggers

WithComponent, WithEntityID, WithMountPoint and WithRPC each return a
child zerolog.Logger with one field pre-attached, following zerolog's
usual With().Str(...).Logger() pattern; combine calls when a log site
needs more than one field fixed:

	log.WithComponent("syncclient").With().Str("entity_id", id).Logger()
*/
package log
