package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kiranshivaraju/autotriage/internal/cache"
	"github.com/kiranshivaraju/autotriage/internal/config"
	"github.com/kiranshivaraju/autotriage/internal/logging"
	"github.com/kiranshivaraju/autotriage/internal/nlp"
	"github.com/kiranshivaraju/autotriage/internal/store"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// failure is an error reported to the user as "Failed to <action>: <err>".
type failure struct {
	action string
	err    error
}

func (f *failure) Error() string { return "Failed to " + f.action + ": " + f.err.Error() }

func (f *failure) Unwrap() error { return f.err }

func failed(action string, err error) error {
	return &failure{action: action, err: err}
}

// env holds the resources a subcommand runs against. It is populated lazily
// by the root command's pre-run hook, so --help never touches the database.
type env struct {
	cfg   *config.Config
	store store.Store
	// cache is nil when REDIS_URL is unset; analyses then run without the lock.
	cache *cache.RedisCache

	loadModel func() (*nlp.Model, error)
}

func (e *env) open(ctx context.Context, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return failed("load config", err)
	}
	e.cfg = cfg
	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, stderr)

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return failed("open database", err)
	}
	e.store = st

	if cfg.Redis.URL == "" {
		return nil
	}
	c, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return failed("connect to redis", err)
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return failed("connect to redis", err)
	}
	e.cache = c
	return nil
}

func (e *env) close() error {
	var errs []error
	if e.cache != nil {
		errs = append(errs, e.cache.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "autotriage",
		Short: "Triage automotive customer complaints",
		Long: "autotriage records free-text vehicle complaints and groups them into\n" +
			"fault clusters with average sentiment and a suggested repair cost.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	root.AddCommand(newAddFeedbackCmd(e))
	root.AddCommand(newListCmd(e))
	root.AddCommand(newAnalyzeCmd(e))
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return run(ctx, &env{loadModel: nlp.LoadEnglish}, args, stdin, stdout, stderr)
}

func run(ctx context.Context, e *env, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := e.close(); cerr != nil && err == nil {
		err = failed("close resources", cerr)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
