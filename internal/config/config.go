// Package config provides configuration loading for knowledged.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Neo4j      Neo4jConfig      `koanf:"neo4j"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
}

// ServerConfig identifies the MCP server implementation.
type ServerConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// EmbeddingsConfig configures the TEI embedding client.
type EmbeddingsConfig struct {
	BaseURL      string   `koanf:"base_url"`
	Model        string   `koanf:"model"`
	APIKey       Secret   `koanf:"api_key"`
	MaxBatchSize int      `koanf:"max_batch_size"`
	Timeout      Duration `koanf:"timeout"`
}

// QdrantConfig configures the vector store connection.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	UseTLS     bool   `koanf:"use_tls"`
	VectorSize uint64 `koanf:"vector_size"`
}

// Neo4jConfig configures the graph store connection.
type Neo4jConfig struct {
	URI      string `koanf:"uri"`
	Username string `koanf:"username"`
	Password Secret `koanf:"password"`
}

// RetrievalConfig holds the score-classification thresholds.
//
// These are policy choices, configurable so they can be tuned and tested
// independently of the pipelines that apply them.
type RetrievalConfig struct {
	// PatternMatchThreshold is the minimum similarity for a retrieved
	// pattern to count as closely matching. Default: 0.7.
	PatternMatchThreshold float64 `koanf:"pattern_match_threshold"`

	// AlignmentThreshold is the similarity a requirement or design must
	// strictly exceed to count as aligned. Default: 0.5.
	AlignmentThreshold float64 `koanf:"alignment_threshold"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}
	if c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings base URL required")
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d", c.Qdrant.Port)
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j URI required")
	}
	if t := c.Retrieval.PatternMatchThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("pattern match threshold must be in (0, 1], got %v", t)
	}
	if t := c.Retrieval.AlignmentThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("alignment threshold must be in (0, 1], got %v", t)
	}
	return nil
}
