package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxi/core/meter"
)

var (
	signalsFlag string
	vehicleFlag int
)

var meterCmd = &cobra.Command{
	Use:   "meter",
	Short: "Run the trip meter of one vehicle on a button sequence",
	Long: "Run the trip meter on a comma separated button sequence: " +
		"0 stop, 1 free, 2 to customer, 3 start trip, 4 end trip, 5 receipt.",
	RunE: runMeter,
}

func init() {
	meterCmd.Flags().StringVar(&signalsFlag, "signals", "1,2,3,4,5,0", "button sequence")
	meterCmd.Flags().IntVar(&vehicleFlag, "vehicle", 0, "vehicle id, 0 uses meter.vehicle_id")
	rootCmd.AddCommand(meterCmd)
}

func runMeter(cmd *cobra.Command, args []string) error {
	sigs, err := meter.ParseSignals(signalsFlag)
	if err != nil {
		return err
	}
	ctx := context.Background()
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)
	if vehicleFlag > 0 {
		svc.Config().Meter.VehicleID = vehicleFlag
	}

	out := cmd.OutOrStdout()
	bench, err := svc.NewBench(ctx, out)
	if err != nil {
		return err
	}
	defer func() { _ = bench.Close() }()

	if err := bench.Meter.Start(); err != nil {
		return err
	}
	fmt.Fprintf(out, "vehicle %d driver %d\n", svc.Config().Meter.VehicleID, bench.Meter.DriverID())
	for _, sig := range sigs {
		rep, err := bench.Meter.Handle(sig)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", sig, err)
			continue
		}
		fmt.Fprintf(out, "%s: %s -> %s\n", sig, rep.From, rep.To)
		if rep.KeyStore != nil {
			fmt.Fprintf(out, "  keystore %s after %d attempt(s)\n", rep.KeyStore.Result, rep.KeyStore.Attempts)
		}
		if sig == meter.SignalStop {
			break
		}
	}
	return nil
}
