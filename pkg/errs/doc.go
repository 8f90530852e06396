// Package errs defines the single error taxonomy shared by client and
// server: a status kind, a message and an optional opaque
// details payload, carried across the RPC boundary in the
// nimbusfs-status-code metadata header.
package errs
