package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitbrowse/internal/git"
)

func newLogCmd(e *env) *cobra.Command {
	var opts git.LogOptions
	var oneline bool
	cmd := &cobra.Command{
		Use:   "log [ref[/path]]",
		Short: "Show a page of commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			start, p, err := locate(repo, optionalArg(args, 0))
			if err != nil {
				return err
			}
			opts.Path = p
			out := cmd.OutOrStdout()
			for c, err := range repo.WalkCommits(cmd.Context(), start, opts) {
				if err != nil {
					return err
				}
				label, err := repo.RefForCommit(c.Hash)
				if err != nil {
					return err
				}
				decoration := ""
				if label != c.Hash.String() {
					decoration = " (" + label + ")"
				}
				if oneline {
					fmt.Fprintf(out, "%s%s %s\n", shortHash(c), decoration, firstLine(c.Message))
					continue
				}
				fmt.Fprintf(out, "commit %s%s\n", c.Hash, decoration)
				fmt.Fprintf(out, "Author: %s\n", formatSignature(c.Author))
				fmt.Fprintf(out, "Date:   %s\n", c.Committer.When.Format("2006-01-02 15:04:05 -0700"))
				fmt.Fprintln(out)
				for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "number of matching commits to skip")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", git.DefaultPageSize, "number of commits to show")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "only show commits whose message contains this text")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	return cmd
}

func newDiffCmd(e *env) *cobra.Command {
	var stat bool
	cmd := &cobra.Command{
		Use:   "diff [rev]",
		Short: "Show the changes a commit introduced",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			c, err := resolve(repo, args)
			if err != nil {
				return err
			}
			d, err := repo.Diff(cmd.Context(), c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range d.Files {
				name := f.Path
				if f.OldPath != "" {
					name = f.OldPath + " => " + f.Path
				}
				switch {
				case f.Binary:
					fmt.Fprintf(out, " %s | Bin\n", name)
				default:
					fmt.Fprintf(out, " %s | +%d -%d\n", name, f.Added, f.Deleted)
				}
			}
			fmt.Fprintf(out, " %d files changed, %d insertions(+), %d deletions(-)\n", len(d.Files), d.Added, d.Deleted)
			if stat {
				return nil
			}
			for _, f := range d.Files {
				if f.Patch == "" {
					continue
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, f.Patch)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stat, "stat", false, "only print the per-file summary")
	return cmd
}

func newPatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "patch [rev]",
		Short: "Print a commit formatted as an email patch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			c, err := resolve(repo, args)
			if err != nil {
				return err
			}
			patch, err := repo.Patch(cmd.Context(), c)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(patch)
			return err
		},
	}
}
