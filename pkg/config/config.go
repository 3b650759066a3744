// Package config loads RetailQA settings from defaults, a YAML file and the
// environment, in that order of precedence.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Data      DataConfig      `koanf:"data"`
	Index     IndexConfig     `koanf:"index"`
	LLM       LLMConfig       `koanf:"llm"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	MCP       MCPConfig       `koanf:"mcp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type DataConfig struct {
	Path   string `koanf:"path"`
	Format string `koanf:"format"` // xlsx, csv ("" = by extension)
}

type IndexConfig struct {
	Provider   string `koanf:"provider"` // inmemory, sqlite, qdrant
	MaxRows    int    `koanf:"max_rows"`
	TopK       int    `koanf:"top_k"`
	Collection string `koanf:"collection"`
	SQLitePath string `koanf:"sqlite_path"`
	QdrantAddr string `koanf:"qdrant_addr"`
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"` // gemini, mock
	Model       string  `koanf:"model"`
	EmbedModel  string  `koanf:"embed_model"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp, none
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type MCPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("data.path", "data/onlineretail.xlsx")
	k.Set("data.format", "")

	k.Set("index.provider", "inmemory")
	k.Set("index.max_rows", 100)
	k.Set("index.top_k", 5)
	k.Set("index.collection", "retail_invoices")
	k.Set("index.sqlite_path", "retail_store.db")
	k.Set("index.qdrant_addr", "localhost:6334")

	k.Set("llm.provider", "gemini")
	k.Set("llm.model", "gemini-2.5-flash")
	k.Set("llm.embed_model", "gemini-embedding-001")
	k.Set("llm.temperature", 0.2)

	k.Set("telemetry.exporter", "stdout")

	k.Set("mcp.enabled", false)
	k.Set("mcp.addr", "127.0.0.1:9041")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (RETAILQA_LLM_MODEL -> llm.model). Keys are two
	// levels deep: the first token is the section, the remainder is the
	// field and may itself contain underscores (RETAILQA_INDEX_MAX_ROWS
	// -> index.max_rows).
	if err := k.Load(env.Provider("RETAILQA_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "RETAILQA_"))
		section, field, found := strings.Cut(key, "_")
		if !found {
			return key
		}
		return section + "." + field
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// GOOGLE_API_KEY is what the Gemini tooling conventionally reads.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	return &cfg, nil
}
