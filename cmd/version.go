package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	version = "0.1.0"
)

func init() {
	verpageCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of Verpage",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("verpage %s\n", version)
			},
		})
}
