package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxi/core/fleet"
	"github.com/kilianp07/taxi/core/model"
)

var (
	statusFlag string
	maxFlag    int
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the vehicles of the directory",
	RunE:  runFleetLs,
}

var fleetCandidatesCmd = &cobra.Command{
	Use:   "candidates <street,postalCode,city>",
	Short: "Rank free vehicles by distance to a pickup",
	Args:  cobra.ExactArgs(1),
	RunE:  runFleetCandidates,
}

func init() {
	fleetLsCmd.Flags().StringVar(&statusFlag, "status", "", "only list vehicles in this status")
	fleetCandidatesCmd.Flags().IntVar(&maxFlag, "max", 0, "number of candidates, 0 uses the configured limit")
	fleetCmd.AddCommand(fleetLsCmd, fleetCandidatesCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	var f fleet.Filter
	if statusFlag != "" {
		st, err := model.ParseStatus(statusFlag)
		if err != nil {
			return err
		}
		f = fleet.StatusFilter(st)
	}
	svc, err := loadService(context.Background())
	if err != nil {
		return err
	}
	defer closeService(svc)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tODOMETER\tDRIVER\tLOCATION")
	for _, v := range svc.Fleet.Vehicles(f) {
		driver := "-"
		if d, ok := svc.Fleet.DriverFor(v.ID); ok {
			driver = fmt.Sprintf("%d %s", d.ID, d.Name())
		}
		loc := "-"
		if v.Location != nil {
			loc = v.Location.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%s\t%s\n", v.ID, v.Status, v.Odometer, driver, loc)
	}
	return tw.Flush()
}

func runFleetCandidates(cmd *cobra.Command, args []string) error {
	pickup, err := model.ParseAddress(args[0])
	if err != nil {
		return err
	}
	svc, err := loadService(context.Background())
	if err != nil {
		return err
	}
	defer closeService(svc)

	max := maxFlag
	if max <= 0 {
		max = svc.Config().Dispatch.MaxCandidates
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VEHICLE\tDISTANCE")
	for _, c := range svc.Engine.FindCandidates(&pickup, max) {
		fmt.Fprintf(tw, "%d\t%d\n", c.Vehicle.ID, c.Distance)
	}
	return tw.Flush()
}
