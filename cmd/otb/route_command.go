package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"otb/internal/services"
)

func newRouteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "route <request-json|->",
		Short: "Send a route request to the routing engine and print the response",
		Long: "Route forwards the request text unchanged to the configured routing engine.\n" +
			"Pass - to read the request from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := args[0]
			if request == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return services.Wrap(services.ErrIO, "route", "read stdin", "", err)
				}
				request = string(data)
			}
			if strings.TrimSpace(request) == "" {
				return services.Wrap(services.ErrValidation, "route", "", "request is empty", nil)
			}
			engine, err := ctx.routingEngine()
			if err != nil {
				return err
			}
			response, err := engine.Route(cmd.Context(), request)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, response)
			if !strings.HasSuffix(response, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
