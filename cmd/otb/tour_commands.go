package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"otb/internal/tour"
)

func newTourCommand(ctx *commandContext) *cobra.Command {
	tourCmd := &cobra.Command{
		Use:   "tour",
		Short: "Manage tours within a project",
	}
	tourCmd.AddCommand(newTourListCommand(ctx))
	tourCmd.AddCommand(newTourShowCommand(ctx))
	tourCmd.AddCommand(newTourCreateCommand(ctx))
	tourCmd.AddCommand(newTourDeleteCommand(ctx))
	return tourCmd
}

func newTourListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List tours in a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.projectStore()
			if err != nil {
				return err
			}
			tours, err := store.ListTours(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, tours)
			}
			out := cmd.OutOrStdout()
			if len(tours) == 0 {
				fmt.Fprintf(out, "No tours in project %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(tours))
			for _, t := range tours {
				rows = append(rows, []string{t.ID, t.Name})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTourShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <project> <tour-id>",
		Short: "Show a tour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.projectStore()
			if err != nil {
				return err
			}
			t, err := store.GetTour(args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := tour.Encode(t)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			stops, controls := 0, 0
			for _, wp := range t.Waypoints {
				switch wp.(type) {
				case *tour.Stop:
					stops++
				case *tour.ControlPoint:
					controls++
				}
			}
			assets := 0
			_ = t.VisitAssets(func(*tour.AssetName) error {
				assets++
				return nil
			})
			thumbnail := "-"
			if thumb := t.Thumbnail(); thumb != nil {
				thumbnail = thumb.String()
			}
			fmt.Fprintln(out, renderKeyValues([][2]string{
				{"Name", t.Name},
				{"Stops", fmt.Sprint(stops)},
				{"Control points", fmt.Sprint(controls)},
				{"Points of interest", fmt.Sprint(len(t.POIs))},
				{"Asset references", fmt.Sprint(assets)},
				{"Thumbnail", thumbnail},
				{"Links", fmt.Sprint(len(t.Links))},
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tour document")
	return cmd
}

func newTourCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <project> <name>",
		Short: "Create an empty tour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.projectStore()
			if err != nil {
				return err
			}
			id, err := store.CreateTour(args[0], tour.New(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newTourDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project> <tour-id>",
		Short: "Delete a tour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.projectStore()
			if err != nil {
				return err
			}
			if err := store.DeleteTour(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tour %s\n", args[1])
			return nil
		},
	}
}
