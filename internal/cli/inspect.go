package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/oasderef/internal/output"
	"github.com/mark3labs/oasderef/internal/resolve"
	"github.com/mark3labs/oasderef/internal/spec"
	"github.com/spf13/cobra"
)

var inspectRunner = runInspect

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [inputs...]",
		Short: "Report circular and unresolved references",
		Long: "Resolve each document and list the references that remain: circular placeholders " +
			"and references that match no #/components/schemas entry, each with its JSON Pointer.",
		Example: strings.TrimSpace(`  oasderef inspect openapi.yaml
  oasderef inspect --strict --format json a.yaml b.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, "inspect", args)
			if err != nil {
				return err
			}
			return inspectRunner(cmd.Context(), cfg, streamsOf(cmd))
		},
	}
	addCommonFlags(cmd.Flags())
	cmd.Flags().String("format", "", "Report format (text|yaml|json); defaults to text")
	return cmd
}

// inspection is the per-document report printed by inspect.
type inspection struct {
	Location string            `json:"location"`
	Title    string            `json:"title,omitempty"`
	Schemas  int               `json:"schemas"`
	Circular []resolve.RefSite `json:"circular"`
	Dangling []resolve.RefSite `json:"dangling"`
}

func (in inspection) tree() *spec.Object {
	sites := func(list []resolve.RefSite) []any {
		out := make([]any, 0, len(list))
		for _, s := range list {
			out = append(out, spec.NewObject().Set("pointer", s.Pointer).Set("ref", s.Ref))
		}
		return out
	}
	obj := spec.NewObject().Set("location", in.Location)
	if in.Title != "" {
		obj.Set("title", in.Title)
	}
	return obj.
		Set("schemas", in.Schemas).
		Set("circular", sites(in.Circular)).
		Set("dangling", sites(in.Dangling))
}

func runInspect(ctx context.Context, cfg *Config, std streams) error {
	logger := newLogger(std.Err, cfg)
	results, err := processAll(ctx, cfg, std, logger, func(doc *spec.Document) (any, error) {
		resolved := resolve.DereferenceDocument(doc, resolve.WithLogger(logger))
		rep := resolve.Inspect(resolved.Root())
		return inspection{
			Location: doc.Location,
			Title:    doc.Info().Title,
			Schemas:  resolve.BuildIndex(doc).Len(),
			Circular: rep.Circular,
			Dangling: rep.Dangling,
		}, nil
	})
	if err != nil {
		return err
	}

	dangling := 0
	trees := make([]any, 0, len(results))
	for _, r := range results {
		in := r.(inspection)
		dangling += len(in.Dangling)
		trees = append(trees, in.tree())
	}

	switch cfg.Format {
	case "text":
		var b strings.Builder
		for _, r := range results {
			writeInspectionText(&b, r.(inspection))
		}
		if _, err := fmt.Fprint(std.Out, b.String()); err != nil {
			return err
		}
	default:
		format, err := output.ParseFormat(cfg.Format)
		if err != nil {
			return newUsageError(fmt.Sprintf("inspect: %v", err))
		}
		var data []byte
		if format == output.YAML {
			data, err = output.EncodeAll(trees, format)
		} else {
			data, err = output.Encode(trees, format)
		}
		if err != nil {
			return err
		}
		if _, err := std.Out.Write(data); err != nil {
			return err
		}
	}

	if cfg.Strict && dangling > 0 {
		return newUsageError(fmt.Sprintf("inspect: %d unresolved reference(s)", dangling))
	}
	return nil
}

func writeInspectionText(b *strings.Builder, in inspection) {
	fmt.Fprintf(b, "%s: %d schemas, %d circular, %d dangling\n", in.Location, in.Schemas, len(in.Circular), len(in.Dangling))
	for _, s := range in.Circular {
		fmt.Fprintf(b, "  circular  %s -> %s\n", s.Pointer, s.Ref)
	}
	for _, s := range in.Dangling {
		fmt.Fprintf(b, "  dangling  %s -> %s\n", s.Pointer, s.Ref)
	}
}
