// Version command for the airlock CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhfdschds/hds-functions/pkg/sdc"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the airlock version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "airlock", sdc.Version)
		},
	}
}
