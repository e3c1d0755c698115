// Package main provides the nordctl entry point. nordctl connects a macOS
// host to NordVPN by driving the Tunnelblick GUI: it picks a server from
// the public catalog, assembles the OpenVPN configuration bundle, and
// controls the connection over Tunnelblick's AppleScript bridge.
//
// Usage:
//
//	nordctl setup
//	nordctl connect --country us [--city miami]
//	nordctl status
//	nordctl disconnect
//
// Environment:
//
//	NORD_USER and NORD_PASS hold the NordVPN service credentials, set in
//	the environment or a .env file in the working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sveliz/nordctl/cli"
	"github.com/sveliz/nordctl/common"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
var (
	appVersion = "dev"
	commitSHA  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verbose bool

	root := &cobra.Command{
		Use:           "nordctl",
		Short:         "Connect to NordVPN through Tunnelblick",
		Version:       fmt.Sprintf("%s (%s)", appVersion, commitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := common.LevelInfo
			if verbose {
				level = common.LevelDebug
			}
			return common.InitLogger(common.LogConfig{Level: level, EnableFile: true})
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	var (
		country string
		city    string
		server  string
		limit   int
	)

	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a NordVPN server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.New()
			if err != nil {
				return err
			}
			return app.Connect(cmd.Context(), country, city, server)
		},
	}
	connectCmd.Flags().StringVarP(&country, "country", "c", "", "two-letter country code (us, de, ...)")
	connectCmd.Flags().StringVar(&city, "city", "", "narrow the country choice to a city")
	connectCmd.Flags().StringVarP(&server, "server", "s", "", "exact server (us5090 or us5090.nordvpn.com)")

	disconnectCmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the active connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.New()
			if err != nil {
				return err
			}
			return app.Disconnect(cmd.Context())
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.New()
			if err != nil {
				return err
			}
			return app.Status(cmd.Context())
		},
	}

	serversCmd := &cobra.Command{
		Use:   "servers",
		Short: "List recommended servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.New()
			if err != nil {
				return err
			}
			return app.Servers(cmd.Context(), country, limit)
		},
	}
	serversCmd.Flags().StringVarP(&country, "country", "c", "", "two-letter country code")
	serversCmd.Flags().IntVarP(&limit, "limit", "l", 0, "number of servers to list")

	countriesCmd := &cobra.Command{
		Use:   "countries",
		Short: "List countries with NordVPN servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.New()
			if err != nil {
				return err
			}
			return app.Countries(cmd.Context())
		},
	}

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Check that Tunnelblick, credentials, and the catalog are ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.New()
			if err != nil {
				return err
			}
			return app.Setup(cmd.Context())
		},
	}

	configsCmd := &cobra.Command{
		Use:   "configs",
		Short: "List installed NordVPN configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.New()
			if err != nil {
				return err
			}
			return app.Configs(cmd.Context())
		},
	}

	root.AddCommand(connectCmd, disconnectCmd, statusCmd, serversCmd,
		countriesCmd, setupCmd, configsCmd)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
