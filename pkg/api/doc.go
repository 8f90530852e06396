/*
Package api implements the nimbusfs gRPC API server: the six-RPC
service (pkg/rpc) backed by the authoritative filesystem in
pkg/serverfs, plus an HTTP health/ready/metrics listener for operators.

# Architecture

	┌──────────────── CLIENT (nimbusfs-agent) ────────────────┐
	│  pkg/syncclient  -- dials with pkg/rpc.Client            │
	└──────────────────────────┼───────────────────────────────┘
	                           │ gRPC (cbor subtype), plain TCP
	┌──────────────────────────▼──────────── SERVER ───────────┐
	│  pkg/api.Server  -- implements rpc.Server                │
	│    - logs every RPC (WithRPC)                            │
	│    - translates *errs.Status into the status trailer     │
	│  pkg/serverfs.FS  -- version bumps, conflict resolution   │
	│  pkg/entitystore + pkg/blobstore  -- bbolt-backed storage │
	└────────────────────────────────────────────────────────────┘

# Usage

	srv := api.NewServer(serverfs.New(entities, blobs))
	if err := srv.Start("0.0.0.0:7700"); err != nil {
		log.Fatal(err.Error())
	}

# Error handling

Every handler translates a *errs.Status returned from pkg/serverfs into
a gRPC trailer via rpc.SetTrailerStatus, so a nimbusfs-agent client can
recover the original errs.Kind without gRPC status codes standing in
the way. Handlers never panic on a *errs.Status; an unexpected non-Status
error is logged and reported as errs.DatabaseError.

# Health

HealthServer exposes /health (liveness), /ready (storage reachability)
and /metrics (Prometheus) over plain HTTP, independent of the gRPC
listener, following the same split operators expect from any daemon.
*/
package api
