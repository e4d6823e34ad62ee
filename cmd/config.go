package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	verpageCmd.AddCommand(
		&cobra.Command{
			Use:   "config",
			Short: "List the config variables and where each value came from",
			Run: func(cmd *cobra.Command, args []string) {
				tw := tablewriter.NewWriter(os.Stdout)
				tw.SetAutoFormatHeaders(false)
				tw.SetHeader([]string{"name", "by", "value"})
				for _, v := range cfg.Vars() {
					tw.Append([]string{v.Name(), v.By(), v.Value()})
				}
				tw.Render()
			},
		})
}
