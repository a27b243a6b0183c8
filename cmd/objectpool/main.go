// Command objectpool exercises object pools from the command line: a
// parallel benchmark, pooled HTTP fetches and configuration scaffolding.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectpool/pkg/config"
	"github.com/ajitpratap0/objectpool/pkg/logger"
	"github.com/ajitpratap0/objectpool/pkg/observability"
)

var version = "0.1.0"

type cli struct {
	configPath string
	cfg        *config.Config
	out        io.Writer
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	observability.Version = version

	root := &cobra.Command{
		Use:   "objectpool",
		Short: "objectpool - bounded, lazily grown pools of reusable objects",
		Long: `objectpool drives generic object pools: it benchmarks a pool under
parallel demand, fetches URLs through pooled HTTP clients and writes
configuration files.

Configuration is read from --config, then OBJECTPOOL_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to YAML configuration file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.out, "objectpool v%s\n", version)
			fmt.Fprintf(c.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(c.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(c.benchCmd())
	root.AddCommand(c.fetchCmd())
	root.AddCommand(c.configCmd())

	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	c.cfg = cfg

	logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("config", c.configPath))
	return nil
}
