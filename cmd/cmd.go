package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitbrowse/internal/config"
	"github.com/thiagokokada/gitbrowse/internal/git"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// env is shared by all commands. It is filled in by the root command's
// PersistentPreRunE before any subcommand runs.
type env struct {
	cfgFile  string
	repoPath string
	verbose  bool
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "goblet",
		Short:        "Read-only browser for git repositories",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&e.cfgFile, "config", "", "config file (default: goblet.{toml,yaml,json} in . or $HOME/.config/goblet)")
	flags.StringVarP(&e.repoPath, "repo", "C", ".", "repository to operate on")
	flags.BoolVarP(&e.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newListCmd(e))
	root.AddCommand(newLogCmd(e))
	root.AddCommand(newDescribeCmd(e))
	root.AddCommand(newRefsCmd(e))
	root.AddCommand(newTagsCmd(e))
	root.AddCommand(newTreeCmd(e))
	root.AddCommand(newBlameCmd(e))
	root.AddCommand(newGrepCmd(e))
	root.AddCommand(newDiffCmd(e))
	root.AddCommand(newPatchCmd(e))
	root.AddCommand(newSnapshotCmd(e))
	root.AddCommand(newWatchCmd(e))
	return root
}

func (e *env) setup() error {
	cfg, err := config.Load(e.cfgFile)
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	if e.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	e.cfg = cfg
	return nil
}

func (e *env) repoOptions() git.Options {
	return git.Options{Root: e.cfg.RepoRoot, CloneURLsBase: e.cfg.CloneURLsBase}
}

func (e *env) open() (*git.Repository, error) {
	return git.Open(e.repoPath, e.repoOptions())
}

// locate resolves a "<ref>/<path>" argument. An empty argument means HEAD
// and the repository root.
func locate(repo *git.Repository, arg string) (*object.Commit, string, error) {
	if arg == "" {
		c, err := repo.Head()
		return c, "", err
	}
	_, rest, c, err := repo.SplitRef(arg)
	if err != nil {
		return nil, "", err
	}
	return c, rest, nil
}

// resolve resolves a single revision argument, HEAD when absent.
func resolve(repo *git.Repository, args []string) (*object.Commit, error) {
	if len(args) == 0 || args[0] == "" {
		return repo.Head()
	}
	return repo.Resolve(args[0])
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func shortHash(c *object.Commit) string {
	return c.Hash.String()[:7]
}

func firstLine(msg string) string {
	for i := 0; i < len(msg); i++ {
		if msg[i] == '\n' {
			return msg[:i]
		}
	}
	return msg
}

func formatSignature(sig object.Signature) string {
	return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
}
