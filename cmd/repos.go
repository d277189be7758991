package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitbrowse/internal/git"
)

func newListCmd(e *env) *cobra.Command {
	var root string
	var depth int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the repositories below the repository root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("root") {
				root = e.cfg.RepoRoot
			}
			if !cmd.Flags().Changed("depth") {
				depth = e.cfg.MaxSearchDepth
			}
			dirs, err := git.Discover(root, depth)
			if err != nil {
				return err
			}
			opts := e.repoOptions()
			opts.Root = root
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, dir := range dirs {
				repo, err := git.Open(dir, opts)
				if err != nil {
					slog.Warn("skipping repository", slog.String("path", dir), slog.Any("error", err))
					continue
				}
				desc, err := repo.Description()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", repo.Name(), strings.TrimSpace(desc))
			}
			return out.Flush()
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "directory to search (default: repo_root)")
	cmd.Flags().IntVar(&depth, "depth", 0, "directory levels to descend (default: max_search_depth)")
	return cmd
}

func newDescribeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [rev]",
		Short: "Name a commit relative to its nearest tagged ancestor",
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
			desc, err := repo.Describe(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}

func newRefsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refs",
		Short: "List the branches and tags pointing at each commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			index, err := repo.ReverseRefs()
			if err != nil {
				return err
			}
			hashes := slices.SortedFunc(maps.Keys(index), func(a, b plumbing.Hash) int {
				return bytes.Compare(a[:], b[:])
			})
			out := cmd.OutOrStdout()
			for _, h := range hashes {
				for _, ref := range index[h] {
					fmt.Fprintf(out, "%s %s %s\n", h, ref.Kind, ref.Name)
				}
			}
			return nil
		},
	}
}

func newTagsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := e.open()
			if err != nil {
				return err
			}
			tags, err := repo.TagList()
			if err != nil {
				return err
			}
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tag := range tags {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
					tag.Name,
					shortHash(tag.Commit),
					tag.When().Format("2006-01-02"),
					firstLine(tag.Commit.Message),
				)
			}
			return out.Flush()
		},
	}
}
