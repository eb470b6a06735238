package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"

	"github.com/seekerhut/ticketrag/internal/repo"
	"github.com/seekerhut/ticketrag/internal/vectorstore"
)

type AIConfig struct {
	Provider      string      `json:"provider"`
	Data          interface{} `json:"data"`
	GenerateModel string      `json:"generate_model"`
	EmbedModel    string      `json:"embed_model"`
	Timeout       int         `json:"timeout"`
	MaxInputChars int         `json:"max_input_chars"`
}

type SearchConfig struct {
	DefaultTopK     int `json:"default_top_k"`
	MaxTopK         int `json:"max_top_k"`
	MinQueryChars   int `json:"min_query_chars"`
	MaxQueryChars   int `json:"max_query_chars"`
	CacheSize       int `json:"cache_size"`
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
}

type SyncConfig struct {
	ResyncCron string `json:"resync_cron"`
}

type Config struct {
	Port        int                `json:"port"`
	JWTSecret   string             `json:"jwt_secret"`
	CORSOrigins []string           `json:"cors_origins"`
	LogConfig   logger.LogConfig   `json:"log_config"`
	Database    repo.DatabaseConfig `json:"database"`
	VectorStore vectorstore.Config `json:"vector_store"`
	AI          AIConfig           `json:"ai"`
	Search      SearchConfig       `json:"search"`
	Sync        SyncConfig         `json:"sync"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "tickets"
	}
	if cfg.VectorStore.Dimension == 0 {
		cfg.VectorStore.Dimension = 768
	}
	if cfg.VectorStore.Type == "pgvector" && cfg.VectorStore.DSN == "" {
		// the document index defaults to living next to the ticket tables
		cfg.VectorStore.DSN = cfg.Database.BuildDSN()
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Addr == "" {
		return nil, fmt.Errorf("vector_store.addr is required for qdrant")
	}
	return &cfg, nil
}
