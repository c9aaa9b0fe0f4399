package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xelth-com/orderbot/internal/buildinfo"
	"github.com/xelth-com/orderbot/internal/config"
	"github.com/xelth-com/orderbot/internal/logging"
)

var (
	// Global flags
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "orderbot",
	Short: "Shopee order and shipment status bot",
	Long: `orderbot answers chat requests for Shopee order details (by SPC_ST cookie)
and shipment history (SPX and GHN tracking codes).

Run "orderbot serve" to start the Telegram bot and the keep-alive HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.New(cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = version()

	rootCmd.AddCommand(serveCmd, trackCmd, ordersCmd, tokenCmd)
}

func version() string {
	if buildinfo.CommitHash == "" {
		return "dev"
	}
	return buildinfo.CommitHash + " (" + buildinfo.BuildTime + ")"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
