package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	jsonparser "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// topLevelKeys lists every key Config recognizes. Used to warn about
// unrecognized keys without rejecting the file outright.
var topLevelKeys = map[string]bool{
	"anthropic_api_key": true,
	"openai_api_key":    true,
	"output_path":       true,
	"codebase":          true,
	"relevance":         true,
	"ranking":           true,
	"dockerfile":        true,
	"scripts":           true,
	"observability":     true,
}

// LoadFromFile reads and parses a JSON configuration file at path. Unknown
// top-level keys produce a slog warning (not an error) so the config format
// can grow without breaking older invocations. Invalid JSON returns an
// error wrapping the decoder's message.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses JSON configuration from an in-memory byte slice,
// layering it over the built-in defaults with koanf: defaults are loaded
// first via a confmap.Provider built from Default(), then the file's bytes
// are merged on top via a rawbytes.Provider with koanf's JSON parser, so
// any field the file omits keeps its default value. The name parameter is
// used only in warning messages and error output.
func LoadFromBytes(data []byte, name string) (*Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	warnUnknownKeys(raw, name)

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), jsonparser.Parser()); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", name, err)
	}
	return cfg, nil
}

// defaultsMap round-trips Default() through JSON into a plain map so it can
// seed koanf's first load layer.
func defaultsMap() map[string]interface{} {
	data, err := json.Marshal(Default())
	if err != nil {
		panic(fmt.Sprintf("marshal default config: %v", err))
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("unmarshal default config: %v", err))
	}
	return m
}

// warnUnknownKeys logs a single warning listing any top-level JSON keys that
// do not correspond to a recognized Config field.
func warnUnknownKeys(raw map[string]json.RawMessage, source string) {
	var unknown []string
	for k := range raw {
		if !topLevelKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	slog.Warn("unknown config keys will be ignored",
		"source", source,
		"keys", strings.Join(unknown, ", "),
	)
}
