package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rebalance/pkg/export"
)

var (
	onceOut    string
	onceFormat string
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single planning cycle and print the plan",
	RunE:  runOnce,
}

func init() {
	onceCmd.Flags().StringVarP(&onceOut, "out", "o", "-", "plan destination, - for stdout")
	onceCmd.Flags().StringVarP(&onceFormat, "format", "f", "json", "plan format: json or csv")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(onceFormat)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	plan, rep, err := svc.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("cycle %s: %w", rep.CycleID, err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if onceOut != "-" {
		f, err := os.Create(onceOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, format, plan)
}
