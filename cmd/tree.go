package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitbrowse/internal/git"
)

func newTreeCmd(e *env) *cobra.Command {
	var lastChanged bool
	cmd := &cobra.Command{
		Use:   "tree [ref[/path]]",
		Short: "List a directory as of a commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			c, p, err := locate(repo, optionalArg(args, 0))
			if err != nil {
				return err
			}
			entries, err := repo.ListTree(c, p)
			if err != nil {
				return err
			}
			var lc git.LastChanged
			if lastChanged {
				if lc, err = repo.LastChangedCached(cmd.Context(), c, p); err != nil {
					return err
				}
			}
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, entry := range entries {
				name := entry.Name
				if entry.Kind == git.EntryDirectory {
					name += "/"
				}
				if rec, ok := lc[entry.Name]; ok && rec.Commit != nil {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n", entry.Mode, entry.Kind, name,
						shortHash(rec.Commit), firstLine(rec.Commit.Message))
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", entry.Mode, entry.Kind, entry.Hash, name)
			}
			return out.Flush()
		},
	}
	cmd.Flags().BoolVar(&lastChanged, "lastchanged", false, "show the commit that last changed each entry")
	return cmd
}

func newBlameCmd(e *env) *cobra.Command {
	var limit int
	var lastModified bool
	cmd := &cobra.Command{
		Use:   "blame ref/path",
		Short: "Show which commit introduced each line of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			c, p, err := locate(repo, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if lastModified {
				when, err := repo.BlameLastModified(cmd.Context(), c, p)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, when.Format("2006-01-02 15:04:05 -0700"))
				return nil
			}
			lines, err := repo.Blame(cmd.Context(), c, p, limit)
			if err != nil {
				return err
			}
			for _, l := range lines {
				marker := " "
				if l.Commit.Boundary {
					marker = "^"
				}
				fmt.Fprintf(out, "%s%.7s (%s %s %4d) %s\n",
					marker, l.Commit.Hash, l.Commit.Author,
					l.Commit.AuthorTime.Format("2006-01-02"), l.Line, l.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many lines (0 for all)")
	cmd.Flags().BoolVar(&lastModified, "last-modified", false, "print the newest commit time among the blamed lines")
	return cmd
}

func newGrepCmd(e *env) *cobra.Command {
	var skip, count int
	cmd := &cobra.Command{
		Use:   "grep query [ref[/path]]",
		Short: "Search file contents as of a commit",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			c, p, err := locate(repo, optionalArg(args, 1))
			if err != nil {
				return err
			}
			results, err := repo.Grep(cmd.Context(), c, p, args[0], skip, count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, res.Path)
				for j, hunk := range res.Hunks {
					if j > 0 {
						fmt.Fprintln(out, "--")
					}
					for _, line := range hunk {
						sep := "-"
						if line.Match {
							sep = ":"
						}
						fmt.Fprintf(out, "%d%s%s\n", line.Number, sep, line.Text)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "number of matching files to skip")
	cmd.Flags().IntVarP(&count, "count", "n", git.DefaultPageSize, "number of matching files to show")
	return cmd
}
