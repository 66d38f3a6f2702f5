package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample oasderef configuration file",
		Long:  "Scaffold a commented oasderef configuration file that documents every supported key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", "oasderef.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, stdout io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "oasderef.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

const sampleConfigYAML = `# oasderef configuration (YAML)
# All fields are optional. Command-line flags override config values,
# positional arguments are appended to inputs.

# Paths or URLs of Swagger 2.0 / OpenAPI 3.x documents. '-' reads stdin.
# inputs: [./openapi.yaml]

# Output encoding: yaml or json (inspect also accepts text).
# format: yaml

# Directory for <name>.resolved.<ext> / <name>.schemas.<ext> files.
# Results go to stdout when omitted.
# out: ./resolved

# JSONPath expression applied to every result.
# select: $.components.schemas.Pet

# Fail when a reference matches no #/components/schemas entry.
# strict: false

# Validate documents with kin-openapi before resolving.
# validate: false

# schemas command only: print compact summaries instead of full schemas.
# simplify: false

# Documents processed at once.
# concurrency: 4

# Per-request timeout and retry attempts for http(s) inputs.
# httpTimeout: 10s
# maxRetries: 3

# Preview planned outputs without writing files.
# dryRun: false

# Write into a non-empty output directory.
# force: false

# Debug logging on stderr, as text or json.
# verbose: false
# logFormat: text
`
