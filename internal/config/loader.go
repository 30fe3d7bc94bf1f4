package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":      {"openai", "anthropic", "gemini", "ollama", "groq"},
	"embedder": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${ENV} references,
// applies defaults, and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} references with the corresponding environment
// variable. Unlike os.ExpandEnv the bare $VAR form is left untouched, so DSN
// passwords containing dollar signs survive.
func expandEnv(raw []byte) []byte {
	var out bytes.Buffer
	for {
		start := bytes.Index(raw, []byte("${"))
		if start < 0 {
			out.Write(raw)
			return out.Bytes()
		}
		end := bytes.IndexByte(raw[start:], '}')
		if end < 0 {
			out.Write(raw)
			return out.Bytes()
		}
		out.Write(raw[:start])
		out.WriteString(os.Getenv(string(raw[start+2 : start+end])))
		raw = raw[start+end+1:]
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Store.Vector == "" {
		cfg.Store.Vector = StoreMemory
	}
	if cfg.Store.Graph == "" {
		cfg.Store.Graph = GraphOff
	}
	if cfg.Store.History == "" {
		cfg.Store.History = HistoryMemory
	}
	if cfg.Store.HistoryPath == "" {
		cfg.Store.HistoryPath = "memoryd-history.db"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embedder", cfg.Providers.Embedder.Name)

	if !cfg.Store.Vector.IsValid() {
		errs = append(errs, fmt.Errorf("store.vector %q is invalid; valid values: postgres, memory", cfg.Store.Vector))
	}
	if !cfg.Store.Graph.IsValid() {
		errs = append(errs, fmt.Errorf("store.graph %q is invalid; valid values: postgres, memory, off", cfg.Store.Graph))
	}
	if !cfg.Store.History.IsValid() {
		errs = append(errs, fmt.Errorf("store.history %q is invalid; valid values: sqlite, memory", cfg.Store.History))
	}

	needsPostgres := cfg.Store.Vector == StorePostgres || cfg.Store.Graph == GraphPostgres
	if needsPostgres && cfg.Store.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("store.postgres_dsn is required when a postgres backend is selected"))
	}
	if cfg.Store.Vector == StorePostgres && cfg.Providers.Embedder.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("providers.embedder.dimensions is required for the postgres vector store"))
	}

	if cfg.Engine.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("engine.retry.max_attempts %d must not be negative", cfg.Engine.Retry.MaxAttempts))
	}
	if m := cfg.Engine.GraphMerge.Threshold; m < 0 || m > 1 {
		errs = append(errs, fmt.Errorf("engine.graph_merge.threshold %.2f is out of range [0, 1]", m))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
