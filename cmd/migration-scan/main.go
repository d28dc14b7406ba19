// cmd/migration-scan/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"billing-tools/internal/common/config"
	"billing-tools/internal/common/logger"
	"billing-tools/internal/migrations"
)

type options struct {
	configPath string
	root       string
	pattern    string
	tool       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if e, ok := err.(*exitError); ok {
			os.Exit(e.code)
		}
		fmt.Fprintln(os.Stderr, "migration-scan:", err)
		os.Exit(1)
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "migration-scan",
		Short:         "Find SQL migrations and checksum them with checksum-tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			invoker := migrations.NewInvoker(cfg.Migrations.ChecksumTool, cfg.Migrations.Root, stdout, stderr, log)
			return runScan(cmd.Context(), stdout, cfg.Migrations, invoker, log)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.root, "root", "", "directory to scan (default migrations.root)")
	cmd.PersistentFlags().StringVar(&opts.pattern, "pattern", "", "glob pattern relative to root (default migrations.pattern)")
	cmd.Flags().StringVar(&opts.tool, "tool", "", "checksum tool executable (default migrations.checksum_tool)")

	cmd.AddCommand(newVerifyCmd(opts, stdout))
	return cmd
}

// setup loads configuration and applies flag overrides.
func setup(opts *options) (*config.Config, logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}

	if opts.root != "" {
		cfg.Migrations.Root = opts.root
	}
	if opts.pattern != "" {
		cfg.Migrations.Pattern = opts.pattern
	}
	if opts.tool != "" {
		cfg.Migrations.ChecksumTool = opts.tool
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format).
		WithFields(map[string]interface{}{"service": "migration-scan"})
	return cfg, log, nil
}

// runner is satisfied by *migrations.Invoker.
type runner interface {
	Run(ctx context.Context, files []string) (int, error)
}

func runScan(ctx context.Context, stdout io.Writer, cfg config.MigrationsConfig, tool runner, log logger.Logger) error {
	files, err := migrations.Scan(cfg.Root, cfg.Pattern)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "found", len(files), "files")
	if len(files) == 0 {
		log.Info("no migration files, checksum tool not invoked", map[string]interface{}{
			"root":    cfg.Root,
			"pattern": cfg.Pattern,
		})
		return nil
	}

	code, err := tool.Run(ctx, files)
	if err != nil {
		return err
	}
	log.Info("checksum tool finished", map[string]interface{}{
		"files":    len(files),
		"exitCode": code,
	})
	return nil
}
