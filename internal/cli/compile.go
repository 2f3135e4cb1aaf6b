package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MStee09/rocketreport/internal/compile"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	RemoteURL string
	AuthToken string
	LocalOnly bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <prompt>",
		Short: "Compile a natural-language prompt into filters",
		Long: `Compile a free-text prompt into the structured filter form.

The remote compilation service is tried first when configured; any remote
failure falls back to the deterministic local pattern compiler. Compilation
happens once, at authoring time - saved rules replay without it.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileCmd(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RemoteURL, "remote-url", os.Getenv("ROCKETREPORT_COMPILE_URL"),
		"remote compilation service endpoint")
	cmd.Flags().StringVar(&opts.AuthToken, "auth-token", os.Getenv("ROCKETREPORT_COMPILE_TOKEN"),
		"bearer token for the remote service")
	cmd.Flags().BoolVar(&opts.LocalOnly, "local-only", false, "skip the remote service entirely")

	return cmd
}

type compileOutput struct {
	Source      compile.Source `json:"source"`
	Explanation string         `json:"explanation,omitempty"`
	Filters     any            `json:"filters"`
}

func runCompileCmd(opts *CompileOptions, prompt string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	var remote compile.Remote
	if !opts.LocalOnly && opts.RemoteURL != "" {
		remote = compile.NewRemoteClient(opts.RemoteURL, opts.AuthToken)
	}
	service := compile.NewService(remote, cat, nil)

	result, err := service.Compile(cmd.Context(), prompt)
	if err != nil {
		var unparseable *compile.ErrUnparseable
		if errors.As(err, &unparseable) {
			formatter.Error("E_UNPARSEABLE", err.Error(), nil)
			return NewExitError(ExitFailure, err.Error())
		}
		return WrapExitError(ExitCommandError, "compile", err)
	}

	formatter.VerboseLog("compiled via %s compiler", result.Source)
	return formatter.SuccessText(
		describeFilters(result.Compiled.Filters),
		compileOutput{
			Source:      result.Source,
			Explanation: result.Explanation,
			Filters:     result.Compiled.Filters,
		})
}
