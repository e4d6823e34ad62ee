package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leftmike/verpage/repl"
)

var (
	replCmd = &cobra.Command{
		Use:   "repl [file ...]",
		Short: "Run commands against the page cache from files or an interactive console",
		RunE:  replRun,
	}

	cmdArgs = []string{}
)

func init() {
	replCmd.Flags().StringSliceVar(&cmdArgs, "cmd", cmdArgs,
		"`command` to execute; multiple allowed")

	verpageCmd.AddCommand(replCmd)
}

func replRun(cmd *cobra.Command, args []string) error {
	mc, cntrs, err := openCache()
	if err != nil {
		return err
	}

	sh := repl.NewShell(mc, cntrs, os.Stdout)
	for _, arg := range cmdArgs {
		err := sh.Execute(arg)
		if err != nil {
			fmt.Fprintln(os.Stdout, err)
		}
	}

	for _, arg := range args {
		f, err := os.Open(arg)
		if err != nil {
			closeCache(mc)
			return fmt.Errorf("verpage: command file: %s", err)
		}
		sh.Run(repl.Lines(f))
		f.Close()
	}

	if len(args) == 0 && len(cmdArgs) == 0 {
		repl.Interact(sh)
	}
	return closeCache(mc)
}
