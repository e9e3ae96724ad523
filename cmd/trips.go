package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxi/core/triplog"
	"github.com/kilianp07/taxi/pkg/export"
)

var (
	formatFlag  string
	outFlag     string
	startFlag   string
	endFlag     string
	tripVehicle int
)

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "Trip log commands",
}

var tripsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the trip log",
	RunE:  runTripsExport,
}

var tripsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import records read back from a key-store dump",
	Args:  cobra.ExactArgs(1),
	RunE:  runTripsImport,
}

func init() {
	tripsExportCmd.Flags().StringVar(&formatFlag, "format", export.FormatCSV, "csv, json or lines")
	tripsExportCmd.Flags().StringVarP(&outFlag, "out", "o", "", "output file, stdout when empty")
	tripsExportCmd.Flags().StringVar(&startFlag, "start", "", "RFC3339 lower bound of the trip start")
	tripsExportCmd.Flags().StringVar(&endFlag, "end", "", "RFC3339 upper bound of the trip start")
	tripsExportCmd.Flags().IntVar(&tripVehicle, "vehicle", 0, "only export trips of this vehicle")
	tripsCmd.AddCommand(tripsExportCmd, tripsImportCmd)
	rootCmd.AddCommand(tripsCmd)
}

func runTripsExport(cmd *cobra.Command, args []string) error {
	q := triplog.Query{VehicleID: tripVehicle}
	var err error
	if startFlag != "" {
		if q.Start, err = time.Parse(time.RFC3339, startFlag); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}
	if endFlag != "" {
		if q.End, err = time.Parse(time.RFC3339, endFlag); err != nil {
			return fmt.Errorf("end: %w", err)
		}
	}
	ctx := context.Background()
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)

	entries, err := svc.Trips.Query(ctx, q)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if outFlag != "" {
		f, err := os.Create(outFlag)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, formatFlag, entries)
}

func runTripsImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	records, err := export.ReadLines(f)
	if err != nil {
		return err
	}
	ctx := context.Background()
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)

	for _, r := range records {
		e := triplog.Entry{Timestamp: r.End, Record: r, KeyStoreResult: "IMPORTED"}
		if err := svc.Trips.Append(ctx, e); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d trip(s)\n", len(records))
	return err
}
