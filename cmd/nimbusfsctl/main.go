package main

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/nimbusfs/nimbusfs/pkg/bus"
)

var mountPoint string

var rootCmd = &cobra.Command{
	Use:   "nimbusfsctl",
	Short: "nimbusfsctl controls a running nimbusfs-agent instance over the session bus",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&mountPoint, "mount-point", "m", "", "mount point of the instance to control (default: the sole running instance)")
	rootCmd.AddCommand(onlineCmd, offlineCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var onlineCmd = &cobra.Command{
	Use:   "online",
	Short: "clear offline mode, triggering a journal flush",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setOffline(false)
	},
}

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "set offline mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setOffline(true)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "print the resolved instance's bus name (mount point and offline state are not shown)",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := bus.Dial()
		if err != nil {
			return err
		}
		defer conn.Close()

		service, err := resolveInstance(conn)
		if err != nil {
			return err
		}
		fmt.Println(service)
		return nil
	},
}

func resolveInstance(conn *dbus.Conn) (string, error) {
	if mountPoint != "" {
		return bus.ResolveByMountPoint(conn, mountPoint)
	}
	return bus.ResolveSole(conn)
}

func setOffline(enabled bool) error {
	conn, err := bus.Dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	service, err := resolveInstance(conn)
	if err != nil {
		return err
	}
	return bus.SetOfflineMode(conn, service, enabled)
}
