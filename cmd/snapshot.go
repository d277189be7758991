package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitbrowse/internal/snapshot"
	"github.com/thiagokokada/gitbrowse/internal/watch"
)

func newSnapshotCmd(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "snapshot [rev]",
		Short: "Build (or reuse) an archive of a commit and print its path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := snapshot.ParseFormat(format)
			if err != nil {
				return err
			}
			repo, err := e.open()
			if err != nil {
				return err
			}
			c, err := resolve(repo, args)
			if err != nil {
				return err
			}
			snap, err := snapshot.New(e.cfg.CacheRoot).Build(cmd.Context(), repo, c, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", snap.Path, snap.Filename)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "tar.gz", "archive format: zip, tar.gz, tar.bz2 or tar.xz")
	return cmd
}

func newWatchCmd(e *env) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep snapshots of every branch head up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := make([]snapshot.Format, 0, len(e.cfg.SnapshotFormats))
			for _, name := range e.cfg.SnapshotFormats {
				f, err := snapshot.ParseFormat(name)
				if err != nil {
					return err
				}
				formats = append(formats, f)
			}
			w := watch.New(snapshot.New(e.cfg.CacheRoot), watch.Options{
				RepoPath: e.repoPath,
				Repo:     e.repoOptions(),
				Formats:  formats,
				Debounce: e.cfg.WatchDebounce,
			})
			if once {
				return w.Prewarm(cmd.Context())
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "build the snapshots once and exit")
	return cmd
}
