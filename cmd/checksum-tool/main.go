// cmd/checksum-tool/main.go
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"billing-tools/internal/checksum"
	"billing-tools/internal/common/logger"
)

const usage = "Usage: checksum-tool <file1> [file2 ...]"

// exitError carries a process exit code out of RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	if args == nil {
		// a nil slice makes cobra fall back to os.Args
		args = []string{}
	}
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if e, ok := err.(*exitError); ok {
			return e.code
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// newRootCmd treats every argument as a path, including ones that look like flags.
func newRootCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:                "checksum-tool <file1> [file2 ...]",
		Short:              "Print Flyway-style CRC32 checksums of SQL migration files",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(stdout, usage)
				return &exitError{code: 2}
			}

			log := logger.NewStructured(logLevel(), "console")
			defer log.Sync()

			results := checksum.Files(args)
			for _, r := range results {
				if r.Err != nil {
					log.Debug("checksum failed", map[string]interface{}{
						"path":  r.Path,
						"error": r.Err,
					})
				}
			}
			return checksum.WriteResults(stdout, results)
		},
	}
}

// logLevel reads LOG_LEVEL; stderr stays quiet below warn by default.
func logLevel() string {
	v := viper.New()
	v.SetDefault("log_level", "warn")
	v.AutomaticEnv()
	return v.GetString("log_level")
}
