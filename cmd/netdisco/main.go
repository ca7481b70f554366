// Netdisco discovers devices and services on the local network.
//
// It browses mDNS in the background, runs SSDP searches in the
// foreground, and reports which known device types are present along with
// a summary of each device found.
//
// Usage:
//
//	netdisco [command] [flags]
//
// See 'netdisco --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/muurk/netdisco/internal/discoverables/all"
	"github.com/muurk/netdisco/internal/logging"
	"github.com/muurk/netdisco/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netdisco",
	Short: "Local network device discovery",
	Long: `Discover devices and services on the local network.

netdisco browses mDNS (Bonjour/Zeroconf) in the background and sends
SSDP (UPnP) searches, then matches the results against a catalog of known
device types such as Chromecast, Sonos, Philips Hue, and Roku.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); empty is silent")
	rootCmd.PersistentFlags().StringSliceVar(&limit, "limit", nil, "Only load these discoverable types (comma separated)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "netdisco %s\n", version.Full())
	},
}
