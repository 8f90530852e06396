// Package bus exposes the per-mount management object on the session
// D-Bus bus: a read-only MountPoint property and a read/write
// OfflineMode property, plus the control-tool side that resolves a
// running instance by mount point or as the sole one running.
package bus
