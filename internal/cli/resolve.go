package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/mark3labs/oasderef/internal/output"
	"github.com/mark3labs/oasderef/internal/resolve"
	"github.com/mark3labs/oasderef/internal/simplify"
	"github.com/mark3labs/oasderef/internal/spec"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// streams are the standard streams of a command run.
type streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

func streamsOf(cmd *cobra.Command) streams {
	return streams{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
}

var (
	resolveRunner = runResolve
	schemasRunner = runSchemas
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [inputs...]",
		Short: "Inline #/components/schemas references in whole documents",
		Long: "Resolve every #/components/schemas reference under paths and components. " +
			"Circular references are replaced by {$ref, _circular: true} placeholders; " +
			"references that match no schema are left as they are unless --strict is set.",
		Example: strings.TrimSpace(`  oasderef resolve openapi.yaml
  oasderef resolve --format json --select "$.paths['/pets'].get" openapi.yaml
  cat openapi.json | oasderef resolve -
  oasderef --config oasderef.yaml resolve --out ./resolved --force`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, "resolve", args)
			if err != nil {
				return err
			}
			return resolveRunner(cmd.Context(), cfg, streamsOf(cmd))
		},
	}
	addCommonFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	return cmd
}

func newSchemasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas [inputs...]",
		Short: "Print every named schema fully resolved",
		Long: "Resolve each entry of components.schemas on its own and print them keyed by reference path. " +
			"With --simplify each schema is reduced to a compact summary (type names, enum values, array of X).",
		Example: strings.TrimSpace(`  oasderef schemas openapi.yaml
  oasderef schemas --simplify --format json openapi.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, "schemas", args)
			if err != nil {
				return err
			}
			return schemasRunner(cmd.Context(), cfg, streamsOf(cmd))
		},
	}
	addCommonFlags(cmd.Flags())
	addOutputFlags(cmd.Flags())
	cmd.Flags().Bool("simplify", false, "Reduce each schema to a compact summary")
	return cmd
}

func runResolve(ctx context.Context, cfg *Config, std streams) error {
	logger := newLogger(std.Err, cfg)
	return emit(ctx, cfg, std, logger, "resolved", func(doc *spec.Document) (any, error) {
		resolved := resolve.DereferenceDocument(doc, resolve.WithLogger(logger))
		if err := checkStrict(cfg, doc.Location, resolved.Root()); err != nil {
			return nil, err
		}
		return resolved.Root(), nil
	})
}

func runSchemas(ctx context.Context, cfg *Config, std streams) error {
	logger := newLogger(std.Err, cfg)
	return emit(ctx, cfg, std, logger, "schemas", func(doc *spec.Document) (any, error) {
		catalog := resolve.DereferenceAllNamedSchemas(doc, resolve.WithLogger(logger))
		if err := checkStrict(cfg, doc.Location, catalog); err != nil {
			return nil, err
		}
		if cfg.Simplify {
			return simplify.Catalog(catalog), nil
		}
		return catalog, nil
	})
}

func checkStrict(cfg *Config, location string, tree any) error {
	if !cfg.Strict {
		return nil
	}
	rep := resolve.Inspect(tree)
	if rep.OK() {
		return nil
	}
	lines := make([]string, 0, len(rep.Dangling))
	for _, site := range rep.Dangling {
		lines = append(lines, fmt.Sprintf("  %s -> %s", site.Pointer, site.Ref))
	}
	return newUsageError(fmt.Sprintf("%s: %d unresolved reference(s):\n%s", location, len(rep.Dangling), strings.Join(lines, "\n")))
}

// emit loads every input, transforms it, applies --select and writes the
// results in input order.
func emit(ctx context.Context, cfg *Config, std streams, logger *slog.Logger, suffix string, transform func(*spec.Document) (any, error)) error {
	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return newUsageError(fmt.Sprintf("%s: %v", cfg.Command, err))
	}

	results, err := processAll(ctx, cfg, std, logger, func(doc *spec.Document) (any, error) {
		tree, err := transform(doc)
		if err != nil {
			return nil, err
		}
		if cfg.Select == "" {
			return tree, nil
		}
		matches, err := output.Select(tree, cfg.Select)
		if err != nil {
			return nil, newUsageError(err.Error())
		}
		logger.Debug("selected", "location", doc.Location, "matches", len(matches))
		return output.Collapse(matches), nil
	})
	if err != nil {
		return err
	}

	if cfg.Out == "" {
		data, err := output.EncodeAll(results, format)
		if err != nil {
			return err
		}
		_, err = std.Out.Write(data)
		return err
	}

	files := make(map[string][]byte, len(results))
	names := outputNames(cfg.Inputs, suffix, format.Ext())
	for i, tree := range results {
		data, err := output.Encode(tree, format)
		if err != nil {
			return err
		}
		files[names[i]] = data
	}
	res, err := output.Write(ctx, files, output.Options{OutDir: cfg.Out, Force: cfg.Force, DryRun: cfg.DryRun})
	if err != nil {
		return wrapOutputError(err, cfg.Out)
	}
	if cfg.DryRun {
		printPlan(std.Out, res)
		return nil
	}
	logger.Info("wrote resolved documents", "out", res.OutDir, "files", len(res.Planned))
	return nil
}

// processAll loads and transforms every input concurrently, bounded by
// cfg.Concurrency. Results keep input order.
func processAll(ctx context.Context, cfg *Config, std streams, logger *slog.Logger, fn func(*spec.Document) (any, error)) ([]any, error) {
	results := make([]any, len(cfg.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, input := range cfg.Inputs {
		g.Go(func() error {
			doc, err := loadInput(gctx, cfg, std.In, input)
			if err != nil {
				return err
			}
			info := doc.Info()
			logger.Debug("loaded document", "location", doc.Location, "title", info.Title, "version", info.Version, "openapi", doc.OpenAPI())
			out, err := fn(doc)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func loadInput(ctx context.Context, cfg *Config, stdin io.Reader, input string) (*spec.Document, error) {
	opts := []spec.Option{
		spec.WithHTTPTimeout(cfg.HTTPTimeout),
		spec.WithMaxRetries(cfg.MaxRetries),
		spec.WithValidation(cfg.Validate),
	}
	var (
		doc *spec.Document
		err error
	)
	if input == "-" {
		data, rerr := io.ReadAll(stdin)
		if rerr != nil {
			return nil, fmt.Errorf("read stdin: %w", rerr)
		}
		doc, err = spec.Parse(ctx, data, "-", opts...)
	} else {
		doc, err = spec.Load(ctx, input, opts...)
	}
	if err != nil {
		return nil, specErrorToUsage(err)
	}
	return doc, nil
}

// specErrorToUsage maps structured spec errors into friendly messages.
func specErrorToUsage(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}

// outputNames derives "<base>.<suffix>.<ext>" file names from inputs,
// numbering repeats so that no two inputs share a file.
func outputNames(inputs []string, suffix, ext string) []string {
	names := make([]string, len(inputs))
	seen := map[string]int{}
	for i, input := range inputs {
		base := inputBase(input)
		seen[base]++
		if n := seen[base]; n > 1 {
			base = fmt.Sprintf("%s-%d", base, n)
		}
		names[i] = base + "." + suffix + "." + ext
	}
	return names
}

func inputBase(input string) string {
	if input == "-" {
		return "stdin"
	}
	var name string
	if u, err := url.Parse(input); err == nil && u.Scheme != "" && u.Host != "" {
		name = path.Base(u.Path)
	} else {
		name = filepath.Base(input)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	return name
}

func printPlan(w io.Writer, res *output.Result) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", res.OutDir, len(res.Planned))
	for _, p := range res.Planned {
		fmt.Fprintf(w, "- %s\n", p.RelPath)
	}
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}
