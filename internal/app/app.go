// ABOUTME: Command-line application wiring
// ABOUTME: Root cobra command, config loading and logger setup shared by subcommands
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sendspin/sendspin-queue/internal/config"
	"github.com/Sendspin/sendspin-queue/internal/logging"
	"github.com/Sendspin/sendspin-queue/internal/version"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App carries state shared by subcommands once the root command has run
type App struct {
	viper  *viper.Viper
	stdout io.Writer
	stderr io.Writer

	configFile string
	cfg        *config.Config
	logger     *log.Logger
	logCloser  io.Closer
}

// NewRootCommand builds the command tree writing to stdout and stderr
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &App{
		viper:  viper.New(),
		stdout: stdout,
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:           "sendspin-queue",
		Short:         "Gapless sequential playback queue for audio files",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default: ./config.yaml or ~/.config/sendspin-queue/config.yaml)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json, logfmt")
	flags.String("log-file", "", "Also append logs to this file")
	flags.Bool("keep-alive", false, "Play silence instead of stopping when the queue is empty")
	flags.Duration("filler", 0, "Length of each silence filler (default 10ms)")

	root.AddCommand(
		a.newPlayCommand(),
		a.newRenderCommand(),
		a.newServeCommand(),
		a.newDiscoverCommand(),
	)
	return root
}

// flagKeys maps flag names to config keys. Several commands define the same
// flag, so only the running command's flags are bound.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
	"keep-alive": "queue.keep_alive",
	"filler":     "queue.filler_duration",
	"rate":       "output.sample_rate",
	"channels":   "output.channels",
	"bit-depth":  "output.bit_depth",
	"block-size": "output.block_size",
	"backend":    "output.backend",
	"volume":     "output.volume",
	"addr":       "stream.addr",
	"codec":      "stream.codec",
	"name":       "stream.name",
	"mdns":       "stream.mdns",
	"watch":      "watch.dir",
}

func (a *App) bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := a.viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func (a *App) setup(cmd *cobra.Command) error {
	if err := a.bindFlags(cmd); err != nil {
		return err
	}
	cfg, err := config.Load(a.viper, a.configFile)
	if err != nil {
		return err
	}
	stderr := a.stderr
	if f := cmd.Flags().Lookup("tui"); f != nil && f.Value.String() == "true" {
		// The terminal belongs to the now-playing view
		stderr = nil
	}
	logger, closer, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.logCloser = closer
	return nil
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		log.New(os.Stderr).Error("command failed", "err", err)
		return 1
	}
	return 0
}
