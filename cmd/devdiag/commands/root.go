package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/devdiag/internal/config"
	"github.com/Dicklesworthstone/devdiag/internal/ui"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// rootOptions holds the state of one command tree: the raw flag values and
// the config resolved from them before any subcommand runs.
type rootOptions struct {
	configPath string
	flags      config.Config
	cfg        config.Config
}

// Execute runs a fresh command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the devdiag command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{flags: config.Default()})
}

func newRootCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devdiag",
		Short: "devdiag - device diagnostics dashboard",
		Long: `devdiag estimates CPU load, memory pressure and battery health from the
coarse signals a device exposes, and shows them on a live dashboard.

The figures are heuristics calibrated against a synthetic benchmark, not
kernel counters. Use "devdiag [command] --help" for more information.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.Resolve(o.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			o.cfg = resolved
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, o.cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "YAML config file")
	config.BindFlags(cmd.PersistentFlags(), &o.flags)

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScanCmd(o))
	cmd.AddCommand(newWatchCmd(o))
	cmd.AddCommand(newServeCmd(o))
	return cmd
}

// runDashboard drives the terminal UI. Logs would corrupt the screen, so
// they only go to --log-file.
func runDashboard(cmd *cobra.Command, cfg config.Config) error {
	a, err := newApp(cfg, cfg.LogFile != "")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	if err := a.scanner.Start(ctx); err != nil {
		return err
	}
	defer a.scanner.Stop()

	return ui.RunTUI(a.scanner)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("devdiag\n")
			cmd.Printf("  Version:  %s\n", Version)
			cmd.Printf("  Commit:   %s\n", Commit)
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
