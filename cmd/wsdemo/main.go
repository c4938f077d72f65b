package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/relaywire/wscore/envutil"
	"github.com/relaywire/wscore/logging"
	"github.com/relaywire/wscore/metrics"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flagDebug       bool
	flagMetricsAddr string
)

var rootCmd = &cobra.Command{
	Use:     "wsdemo",
	Short:   "Demo services built on the wscore websocket service core",
	Long:    `wsdemo runs one of the three wscore serving flavors: periodic broadcast, pub/sub broadcast or reactive request/response.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; the environment may be set directly.
		_ = godotenv.Load()
		logging.Init(logging.Config{
			Debug:     flagDebug || envutil.Bool("WS_DEBUG"),
			Format:    "auto",
			Component: envutil.ExecutableName(),
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wsdemo %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics", "", "serve prometheus metrics on this address (e.g. :9091)")
	rootCmd.AddCommand(periodicCmd)
	rootCmd.AddCommand(pubsubCmd)
	rootCmd.AddCommand(reactiveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serviceContext is cancelled on SIGINT/SIGTERM and starts the metrics
// sidecar when requested.
func serviceContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if flagMetricsAddr != "" {
		metrics.Serve(ctx, flagMetricsAddr)
	}
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutdown signal received")
	}()
	return ctx, cancel
}
