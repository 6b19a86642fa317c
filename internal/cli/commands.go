// Package cli defines the packtest command tree. Commands stay thin: they
// parse flags, call into pkg/core and render the outcome.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/arthur-debert/packtest/internal/version"
	"github.com/arthur-debert/packtest/pkg/core"
	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
	"github.com/arthur-debert/packtest/pkg/packs"
	"github.com/arthur-debert/packtest/pkg/style"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity       int
		packPath        string
		skipEnvCreation bool
		testsOnly       bool
		junitXML        string
	)

	rootCmd := &cobra.Command{
		Use:   "packtest",
		Short: "Run a pack's test suite in an isolated virtualenv",
		Long: `packtest provisions a per-pack Python virtualenv, installs the platform
and pack dependency layers, composes the import path and runs the pack's
test suite, exiting with the test runner's own status.`,
		Example: `  # Full run: create the env, install everything, run the tests
  packtest -p /path/to/packs/mypack

  # Reuse yesterday's environment
  packtest -x -p /path/to/packs/mypack

  # Environment is ready, just re-run the tests
  packtest -x -j -p /path/to/packs/mypack`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if packPath == "" {
				return errors.New(errors.ErrUsage, "a pack directory is required (-p)")
			}

			result, err := core.RunPackTests(cmd.Context(), core.RunPackTestsOptions{
				PackPath:        packPath,
				SkipEnvCreation: skipEnvCreation,
				TestsOnly:       testsOnly,
				JUnitXML:        junitXML,
			})
			if err != nil {
				return err
			}

			if !result.TestsRun {
				fmt.Fprintln(cmd.OutOrStdout(), "No tests found.")
				return nil
			}

			renderOutcome(cmd, result)

			if result.ExitCode != 0 {
				// The runner's status becomes our own, unwrapped.
				return errors.New(errors.ErrRunnerFailed, "tests failed").
					WithExitCode(result.ExitCode)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	rootCmd.Flags().StringVarP(&packPath, "pack", "p", "", "Path to the pack directory")
	rootCmd.Flags().BoolVarP(&skipEnvCreation, "skip-env-create", "x", false, "Reuse an existing virtualenv instead of creating one")
	rootCmd.Flags().BoolVarP(&testsOnly, "tests-only", "j", false, "Skip dependency installation; requires a previously prepared virtualenv")
	rootCmd.Flags().StringVar(&junitXML, "junit-xml", "", "Write a JUnit XML report to the given path")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCleanCmd())

	return rootCmd
}

// renderOutcome prints the end-of-run summary line.
func renderOutcome(cmd *cobra.Command, result *core.RunPackTestsResult) {
	status := style.StatusPassed
	detail := ""
	if result.ExitCode != 0 {
		status = style.StatusFailed
	}
	if result.Report != nil {
		detail = fmt.Sprintf("%d tests, %d problems", result.Report.Tests, result.Report.Problems())
	}
	fmt.Fprintln(cmd.ErrOrStderr(), style.ResultLine(result.Pack.DisplayName(), status, detail))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("packtest version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Printf("Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Printf("Built:  %s\n", version.Date)
			}
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [directory]",
		Short: "List the packs under a directory",
		Long: `List scans a directory for pack subdirectories and reports which of
them carry a tests directory. Defaults to the current directory.`,
		Args: cobra.MaximumNArgs(1),
		Example: `  # List packs under the current directory
  packtest list

  # List packs under an explicit root
  packtest list /path/to/packs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			candidates, err := packs.Discover(root)
			if err != nil {
				return err
			}

			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packs found.")
				return nil
			}
			for _, c := range candidates {
				marker := " "
				if c.HasTests {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, c.Name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\n* has tests")
			return nil
		},
	}
}

func newCleanCmd() *cobra.Command {
	var (
		packPath string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached pack virtualenvs",
		Long: `Clean deletes the virtualenv cached for one pack, or every cached
virtualenv with --all. The next run recreates what it needs.`,
		Example: `  # Remove one pack's environment
  packtest clean -p /path/to/packs/mypack

  # Remove everything
  packtest clean --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && packPath == "" {
				return errors.New(errors.ErrUsage, "either a pack (-p) or --all is required")
			}

			removed, err := core.Clean(core.CleanOptions{
				PackPath: packPath,
				All:      all,
			})
			if err != nil {
				return err
			}

			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean.")
				return nil
			}
			for _, name := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&packPath, "pack", "p", "", "Path to the pack directory")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every cached virtualenv")

	return cmd
}

// Main runs the command tree and translates the outcome to a process exit
// code. Flag and usage errors exit 2 and print the usage block; everything
// else maps through the error's code, so a failing test suite surfaces its
// runner's own status.
func Main() int {
	return run(NewRootCmd(), os.Stderr)
}

func run(rootCmd *cobra.Command, stderr io.Writer) int {
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return errors.ExitOK
	}
	if cmd == nil {
		cmd = rootCmd
	}

	if _, ok := err.(*errors.PacktestError); !ok {
		// cobra's own errors are all usage errors
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return errors.ExitUsage
	}

	code := errors.ExitCode(err)
	if !errors.IsErrorCode(err, errors.ErrRunnerFailed) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	if errors.IsErrorCode(err, errors.ErrUsage) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return code
}
