package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"github.com/aldld/huebackup/huebackup"
	"github.com/aldld/huebackup/hueerr"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2

	// 128 + SIGINT
	exitInterrupted = 130
)

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

// cli holds what every command shares once flags are parsed.
type cli struct {
	configPath string
	debug      bool
	noColor    bool

	log    *slog.Logger
	config huebackup.Config
	out    *printer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	c := &cli{}
	err := c.rootCmd().ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()
	if err == nil {
		os.Exit(exitSuccess)
	}
	if interrupted && errors.Is(err, context.Canceled) {
		os.Exit(exitInterrupted)
	}

	out := c.out
	if out == nil {
		out = newPrinter(os.Stdout, c.noColor)
	}
	out.error(err)
	var ue usageError
	if errors.As(err, &ue) {
		os.Exit(exitUsage)
	}
	os.Exit(exitFailure)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "huebackup",
		Short:         "Back up, diff and restore Hue bridge rooms and program switches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config, err := huebackup.LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			level := config.Logger.SlogLevel()
			if c.debug {
				level = slog.LevelDebug
			}
			c.config = config
			c.log = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.TimeOnly,
			}))
			c.out = newPrinter(cmd.OutOrStdout(), c.noColor || os.Getenv("NO_COLOR") != "")
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "config.toml", "path to the TOML config file")
	flags.BoolVar(&c.debug, "debug", false, "log at debug level")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		c.reloadCmd(),
		c.cacheInfoCmd(),
		c.saveRoomCmd(),
		c.diffRoomCmd(),
		c.restoreRoomCmd(),
		c.listSnapshotsCmd(),
		c.programButtonCmd(),
		c.showSwitchCmd(),
		c.initSwitchCmd(),
		c.programZoneSwitchCmd(),
		c.duplicateSceneCmd(),
		c.autoDynamicCmd(),
		c.deleteSceneCmd(),
		c.auditCmd(),
		c.followCmd(),
	)
	return root
}

// args wraps a cobra argument check so that its failures exit as usage errors.
func args(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := check(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// open builds the application. Commands that talk to the bridge need its
// address and key.
func (c *cli) open(ctx context.Context, needBridge bool) (*huebackup.App, error) {
	if needBridge {
		if err := c.config.RequireBridge(); err != nil {
			return nil, err
		}
	}
	return huebackup.New(ctx, c.log, c.config)
}

// fresh refreshes the mirror when needed. A stale-cache warning is shown and
// swallowed.
func (c *cli) fresh(ctx context.Context, app *huebackup.App, force bool) error {
	return c.warnOnly(app.Gateway.EnsureFresh(ctx, force))
}

// warnOnly prints advisory errors and returns everything else.
func (c *cli) warnOnly(err error) error {
	if hueerr.IsWarning(err) {
		c.out.warn(err)
		return nil
	}
	return err
}

func (c *cli) confirm(yes bool, question string) bool {
	if yes {
		return true
	}
	return c.out.confirm(os.Stdin, question)
}

func notConfirmed(out *printer) error {
	out.info("Cancelled.")
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
