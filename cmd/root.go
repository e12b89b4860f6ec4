package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rebalance/app"
	"github.com/kilianp07/rebalance/config"
	"github.com/kilianp07/rebalance/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Bike-share rebalancing planner",
	Long: "Periodically classifies docking stations, pairs surplus with deficit stations " +
		"and routes bike and service-vehicle itineraries between them.",
	SilenceUsage: true,
	RunE:         runLoop,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// newService loads the configuration and builds the service.
func newService() (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg)
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}

func runLoop(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	logger.New("main").Infof("planner started with %s", cfgPath)
	return svc.Run(ctx)
}
