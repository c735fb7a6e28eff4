package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncbridge/syncd/internal/server"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the syncd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), server.Version)
			return nil
		},
	}
}
