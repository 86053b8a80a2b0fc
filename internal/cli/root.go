// Package cli implements the happi command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/happi/pkg/schema"
	"github.com/mesh-intelligence/happi/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	path      string
	logLevel  string
	verbose   bool
	jsonMode  bool
}

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// userError marks err as caused by the invocation rather than the system.
func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

// userErrors are the failures a user can fix by changing the invocation or
// the data.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrDuplicateID,
	types.ErrInvalidID,
	types.ErrInvalidRecord,
	types.ErrUnsupported,
	schema.ErrValidation,
	schema.ErrEnforcement,
	schema.ErrUnknownType,
}

// classify wraps err with its exit code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return &exitError{code: exitUserError, err: err}
		}
	}
	return &exitError{code: exitSysError, err: err}
}

// runE adapts a command body so its error carries an exit code.
func runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return classify(fn(cmd, args))
	}
}

// NewRootCmd creates the top-level "happi" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:   "happi",
		Short: "Device metadata registry",
		Long:  "happi stores, validates and searches device metadata records\nthrough interchangeable backends.",
		// Errors are reported by Run with their exit code.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $HAPPI_CONFIG_DIR)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory for local backends (default: platform data dir, or $HAPPI_DATA_DIR)")
	pf.StringVar(&flags.backend, "backend", "", "backend to use: json, sqlite, mongo, questionnaire, multi")
	pf.StringVar(&flags.path, "path", "", "database file for json and sqlite backends")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "development logging at debug level")
	pf.BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(&flags),
		newSearchCmd(&flags),
		newShowCmd(&flags),
		newAddCmd(&flags),
		newEditCmd(&flags),
		newDeleteCmd(&flags),
		newAuditCmd(&flags),
		newTypesCmd(&flags),
		newTransferCmd(&flags),
		newExportCmd(&flags),
		newImportCmd(&flags),
	)
	return root
}

// Run executes the command line args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Flag parsing and argument count errors never reach runE.
	return exitUserError
}

// Execute runs the root command against the process arguments.
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}
