package main

import (
	"encoding/json"

	"github.com/qvcloud/subscription"
	"github.com/spf13/cobra"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List the registered subscription protocols and their schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(subscription.Protocols())
	},
}

func init() {
	rootCmd.AddCommand(protocolsCmd)
}
