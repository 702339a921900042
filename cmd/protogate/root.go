package main

import (
	"github.com/spf13/cobra"

	"github.com/drblury/protogate/modules"
)

// catalog is the module list every command works on.
var catalog = modules.All

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "protogate",
		Short:         "Transport-agnostic RPC gateway",
		Long:          "Protogate exposes the backend services over HTTP and relays every call over the configured transport.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newPatternsCmd())
	return root
}
