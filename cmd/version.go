package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitbrowse/internal/buildinfo"
	"github.com/thiagokokada/gitbrowse/internal/git"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "goblet %s\n", buildinfo.String())
			if v, err := git.GitVersion(); err == nil {
				fmt.Fprintln(out, v)
			} else {
				fmt.Fprintf(out, "git unavailable: %v\n", err)
			}
		},
	}
}
