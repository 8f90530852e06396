package bus

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

const (
	namePrefix = "io.nimbusfs.Client"
	objectPath = dbus.ObjectPath("/io/nimbusfs/Client")
	ifaceName  = "io.nimbusfs.Client1"
)

// OfflineController is the subset of *syncclient.Client the bus needs.
// Declared here rather than imported so this package stays independent
// of the synchronizer.
type OfflineController interface {
	Offline() bool
	SetOffline(bool)
}

// Server exports the management object for one mount point on the
// session bus.
type Server struct {
	conn *dbus.Conn
}

// NewServer claims a unique well-known name on the session bus and
// exports mountPoint's management object. Writing false to the
// OfflineMode property arms ctrl's journal-flush trigger.
func NewServer(mountPoint string, ctrl OfflineController) (*Server, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("bus: connect session bus: %w", err)
	}

	name := fmt.Sprintf("%s%d", namePrefix, os.Getpid())
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bus: request name %s: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus: name %s already owned", name)
	}

	propsSpec := map[string]map[string]*prop.Prop{
		ifaceName: {
			"MountPoint": {
				Value:    mountPoint,
				Writable: false,
				Emit:     prop.EmitFalse,
			},
			"OfflineMode": {
				Value:    ctrl.Offline(),
				Writable: true,
				Emit:     prop.EmitTrue,
				Callback: func(c *prop.Change) *dbus.Error {
					enabled, ok := c.Value.(bool)
					if !ok {
						return dbus.MakeFailedError(fmt.Errorf("OfflineMode must be a bool"))
					}
					ctrl.SetOffline(enabled)
					return nil
				},
			},
		},
	}

	props, err := prop.Export(conn, objectPath, propsSpec)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bus: export properties: %w", err)
	}

	node := &introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       ifaceName,
				Properties: props.Introspection(ifaceName),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bus: export introspectable: %w", err)
	}

	return &Server{conn: conn}, nil
}

// Close releases the bus connection, relinquishing the well-known name.
func (s *Server) Close() error {
	return s.conn.Close()
}
