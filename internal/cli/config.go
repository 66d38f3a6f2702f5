package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config captures every input that influences a command after merging
// defaults, config file values, and CLI overrides.
type Config struct {
	Command     string
	Inputs      []string
	Format      string
	Out         string
	Select      string
	Strict      bool
	Validate    bool
	Simplify    bool
	Concurrency int
	HTTPTimeout time.Duration
	MaxRetries  int
	ConfigPath  string
	DryRun      bool
	Force       bool
	Verbose     bool
	LogFormat   string
}

func defaultConfig(command string) Config {
	format := "yaml"
	if command == "inspect" {
		format = "text"
	}
	return Config{
		Command:     command,
		Format:      format,
		Concurrency: 4,
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		LogFormat:   "text",
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.StringSlice("input", nil, "Path or URL of a Swagger/OpenAPI document; '-' reads stdin (repeatable)")
	flags.Bool("strict", false, "Fail when references cannot be resolved")
	flags.Bool("validate", false, "Validate documents with kin-openapi before resolving")
	flags.Int("concurrency", 0, "Maximum number of documents processed at once (default 4)")
	flags.Duration("http-timeout", 0, "Timeout for each HTTP request (default 10s)")
	flags.Int("max-retries", -1, "Attempts for transient HTTP failures (default 3)")
}

func addOutputFlags(flags *pflag.FlagSet) {
	flags.String("format", "", "Output format (yaml|json); defaults to yaml")
	flags.String("out", "", "Output directory; results go to stdout when omitted")
	flags.String("select", "", "JSONPath expression selecting part of each result")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Write into a non-empty output directory")
}

func resolveConfig(cmd *cobra.Command, command string, args []string) (*Config, error) {
	cfg := defaultConfig(command)

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Inputs = append(cfg.Inputs, args...)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *Config) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || flags.Lookup(name) == nil || !flags.Changed(name) {
			return
		}
		var v string
		v, err = flags.GetString(name)
		*dst = strings.TrimSpace(v)
	}
	boolean := func(name string, dst *bool) {
		if err != nil || flags.Lookup(name) == nil || !flags.Changed(name) {
			return
		}
		*dst, err = flags.GetBool(name)
	}
	integer := func(name string, dst *int) {
		if err != nil || flags.Lookup(name) == nil || !flags.Changed(name) {
			return
		}
		*dst, err = flags.GetInt(name)
	}

	if flags.Lookup("input") != nil && flags.Changed("input") {
		inputs, gerr := flags.GetStringSlice("input")
		if gerr != nil {
			return gerr
		}
		cfg.Inputs = inputs
	}
	if flags.Lookup("http-timeout") != nil && flags.Changed("http-timeout") {
		d, gerr := flags.GetDuration("http-timeout")
		if gerr != nil {
			return gerr
		}
		cfg.HTTPTimeout = d
	}
	str("format", &cfg.Format)
	str("out", &cfg.Out)
	str("select", &cfg.Select)
	str("log-format", &cfg.LogFormat)
	boolean("strict", &cfg.Strict)
	boolean("validate", &cfg.Validate)
	boolean("simplify", &cfg.Simplify)
	boolean("dry-run", &cfg.DryRun)
	boolean("force", &cfg.Force)
	boolean("verbose", &cfg.Verbose)
	integer("concurrency", &cfg.Concurrency)
	integer("max-retries", &cfg.MaxRetries)
	return err
}

func (c *Config) normalize() {
	c.Inputs = sanitizeList(c.Inputs)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Out = strings.TrimSpace(c.Out)
	c.Select = strings.TrimSpace(c.Select)
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

func (c *Config) validate() error {
	if len(c.Inputs) == 0 {
		return newUsageError(fmt.Sprintf("%s: at least one input is required (argument, --input, or config file)", c.Command))
	}

	switch c.Format {
	case "yaml", "yml", "json":
	case "text":
		if c.Command != "inspect" {
			return newUsageError(fmt.Sprintf("%s: unsupported --format %q (allowed: yaml, json)", c.Command, c.Format))
		}
	case "":
		c.Format = defaultConfig(c.Command).Format
	default:
		allowed := "yaml, json"
		if c.Command == "inspect" {
			allowed = "text, yaml, json"
		}
		return newUsageError(fmt.Sprintf("%s: unsupported --format %q (allowed: %s)", c.Command, c.Format, allowed))
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return newUsageError(fmt.Sprintf("unsupported --log-format %q (allowed: text, json)", c.LogFormat))
	}
	if c.Simplify && c.Command != "schemas" {
		return newUsageError(fmt.Sprintf("%s: --simplify only applies to the schemas command", c.Command))
	}
	return nil
}

// sanitizeList trims, drops empty entries and removes duplicates, so stdin
// ("-") is read at most once.
func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func applyConfigFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		if err := applyConfigField(cfg, normalizeKey(key), value); err != nil {
			if errors.Is(err, errUnknownField) {
				return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
			}
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}
	return nil
}

var errUnknownField = errors.New("unknown field")

func applyConfigField(cfg *Config, key string, value any) error {
	var err error
	switch key {
	case "input", "inputs":
		cfg.Inputs, err = valueAsStringSlice(value)
	case "format":
		cfg.Format, err = valueAsString(value)
	case "out":
		cfg.Out, err = valueAsString(value)
	case "select":
		cfg.Select, err = valueAsString(value)
	case "logformat":
		cfg.LogFormat, err = valueAsString(value)
	case "strict":
		cfg.Strict, err = valueAsBool(value)
	case "validate":
		cfg.Validate, err = valueAsBool(value)
	case "simplify":
		cfg.Simplify, err = valueAsBool(value)
	case "dryrun":
		cfg.DryRun, err = valueAsBool(value)
	case "force":
		cfg.Force, err = valueAsBool(value)
	case "verbose":
		cfg.Verbose, err = valueAsBool(value)
	case "concurrency":
		cfg.Concurrency, err = valueAsInt(value)
	case "maxretries":
		cfg.MaxRetries, err = valueAsInt(value)
	case "httptimeout":
		cfg.HTTPTimeout, err = valueAsDuration(value)
	default:
		return errUnknownField
	}
	return err
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
