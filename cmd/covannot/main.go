package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"covannot/internal/config"
	"covannot/internal/diag"
	"covannot/internal/logging"
	"covannot/internal/version"
)

// errInconsistent signals a completed check that found errors. The
// diagnostics have already been printed.
var errInconsistent = errors.New("coverage annotations are inconsistent")

// skipConfig marks commands that must work even with a broken config file.
const skipConfig = "skip-config"

// app holds the state shared by all commands of one invocation.
type app struct {
	// Global flags
	dir         string
	configPath  string
	flakyPolicy string
	verbose     bool
	noColor     bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "covannot",
		Short: "Check coverage annotations against a Cobertura report",
		Long: `covannot verifies that coverage annotation comments in source files agree
with the line coverage recorded in Cobertura reports.

Lines, regions and whole files can be annotated:
  // TESTED, // MAYBE TESTED, // NOT TESTED, // FLAKY TESTED
  // BEGIN NOT TESTED ... // END NOT TESTED
  // FILE NOT TESTED

Run it from the project root after the test run has written cobertura.xml.
The exit status is 1 when any annotation disagrees with the coverage data.`,
		Version:       version.Get(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: a.runCheck,
	}
	rootCmd.SetVersionTemplate("covannot {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.dir, "dir", "C", ".", "Project directory")
	flags.StringVar(&a.configPath, "config", "", "Config file (default: <dir>/"+config.FileName+")")
	flags.StringVar(&a.flakyPolicy, "flaky-policy", "", "How FLAKY TESTED lines are checked: not-tested, maybe-tested or tested")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	return rootCmd
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	var source string
	if cmd.Annotations[skipConfig] == "" {
		loader := config.NewLoader()
		if err := loader.BindFlag("flaky_policy", cmd.Flags().Lookup("flaky-policy")); err != nil {
			return err
		}
		loaded, err := loader.Load(a.dir, a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		source = loader.ConfigFileUsed()
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}
	a.logger = logger

	logging.For(logger, logging.CategoryConfig).Debug("configuration loaded",
		zap.String("file", source),
		zap.String("flaky_policy", cfg.FlakyPolicy),
		zap.Strings("tracked_roots", cfg.TrackedRoots))
	return nil
}

// useColor reports whether diagnostics written to w are colored. The
// terminal check is made on w, not on stdout.
func (a *app) useColor(w io.Writer) bool {
	if !a.cfg.Color || a.noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) printer(w io.Writer) *diag.Printer {
	return diag.NewPrinter(w, a.useColor(w))
}

func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInconsistent) {
			fmt.Fprintln(stderr, "covannot:", err)
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
