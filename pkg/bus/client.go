package bus

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// ResolveError reports instance-resolution failure alongside every
// mount point currently running, for diagnostics.
type ResolveError struct {
	Message     string
	MountPoints []string
}

func (e *ResolveError) Error() string {
	if len(e.MountPoints) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s\n\navailable mount points:\n  %s", e.Message, strings.Join(e.MountPoints, "\n  "))
}

// Dial connects to the session bus for control-tool use.
func Dial() (*dbus.Conn, error) {
	return dbus.ConnectSessionBus()
}

func runningServices(conn *dbus.Conn) ([]string, error) {
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("bus: list names: %w", err)
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, namePrefix) {
			out = append(out, n)
		}
	}
	return out, nil
}

func mountPointOf(conn *dbus.Conn, service string) (string, error) {
	obj := conn.Object(service, objectPath)
	v, err := obj.GetProperty(ifaceName + ".MountPoint")
	if err != nil {
		return "", fmt.Errorf("bus: get MountPoint on %s: %w", service, err)
	}
	mp, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("bus: MountPoint on %s had unexpected type", service)
	}
	return mp, nil
}

func mountPointsOf(conn *dbus.Conn, services []string) ([]string, error) {
	out := make([]string, 0, len(services))
	for _, svc := range services {
		mp, err := mountPointOf(conn, svc)
		if err != nil {
			return nil, err
		}
		out = append(out, mp)
	}
	return out, nil
}

// ResolveByMountPoint finds the running instance whose MountPoint
// property equals mountPoint.
func ResolveByMountPoint(conn *dbus.Conn, mountPoint string) (string, error) {
	services, err := runningServices(conn)
	if err != nil {
		return "", err
	}
	var seen []string
	for _, svc := range services {
		mp, err := mountPointOf(conn, svc)
		if err != nil {
			return "", err
		}
		if mp == mountPoint {
			return svc, nil
		}
		seen = append(seen, mp)
	}
	return "", &ResolveError{
		Message:     fmt.Sprintf("no running instance for mount point %s", mountPoint),
		MountPoints: seen,
	}
}

// ResolveSole finds the single running instance, failing if there is
// none or more than one running.
func ResolveSole(conn *dbus.Conn) (string, error) {
	services, err := runningServices(conn)
	if err != nil {
		return "", err
	}
	switch len(services) {
	case 0:
		return "", &ResolveError{Message: "no nimbusfs instances running"}
	case 1:
		return services[0], nil
	default:
		mps, err := mountPointsOf(conn, services)
		if err != nil {
			return "", err
		}
		return "", &ResolveError{
			Message:     "more than one nimbusfs instance running, specify a mount point",
			MountPoints: mps,
		}
	}
}

// SetOfflineMode writes the OfflineMode property on service.
func SetOfflineMode(conn *dbus.Conn, service string, enabled bool) error {
	call := conn.Object(service, objectPath).Call(
		"org.freedesktop.DBus.Properties.Set", 0, ifaceName, "OfflineMode", dbus.MakeVariant(enabled))
	return call.Err
}
