package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxi/core/model"
)

var (
	pickupFlag      string
	destinationFlag string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch one order and print the assignment",
	RunE:  dispatchOrder,
}

func init() {
	dispatchCmd.Flags().StringVar(&pickupFlag, "pickup", "", "pickup address as street,postalCode,city")
	dispatchCmd.Flags().StringVar(&destinationFlag, "destination", "", "destination address as street,postalCode,city")
	_ = dispatchCmd.MarkFlagRequired("pickup")
	_ = dispatchCmd.MarkFlagRequired("destination")
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchOrder(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pickup, err := model.ParseAddress(pickupFlag)
	if err != nil {
		return fmt.Errorf("pickup: %w", err)
	}
	dest, err := model.ParseAddress(destinationFlag)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)

	asn, err := svc.Engine.Dispatch(ctx, &pickup, &dest)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), asn)
}
