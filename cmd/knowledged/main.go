// Knowledged is a knowledge-retrieval MCP server over stdio.
//
// It serves four retrieval operations backed by a Qdrant vector store, a TEI
// embedding service, and a Neo4j relationship graph: consistency checking,
// fix validation, design-context gathering, and requirement tracing.
//
// Configuration is loaded from a YAML file and KNOWLEDGED_* environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start on stdio with defaults (~/.config/knowledged/config.yaml)
//	knowledged
//
//	# Explicit config file
//	knowledged -config /etc/knowledged/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowledged/internal/config"
	"github.com/fyrsmithlabs/knowledged/internal/embeddings"
	"github.com/fyrsmithlabs/knowledged/internal/engine"
	"github.com/fyrsmithlabs/knowledged/internal/graphstore"
	"github.com/fyrsmithlabs/knowledged/internal/logging"
	mcpserver "github.com/fyrsmithlabs/knowledged/internal/mcp"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/knowledged/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  knowledged           Start the retrieval server on stdio\n")
			fmt.Fprintf(os.Stderr, "  knowledged version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("knowledged by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the retrieval server and blocks until the context is
// cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger
//  3. Connect the embedding client, vector store, and graph store
//  4. Build the retrieval engine
//  5. Serve the MCP tools on stdio
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting knowledged",
		zap.String("version", version),
		zap.String("embeddings_url", cfg.Embeddings.BaseURL),
		zap.String("qdrant_host", cfg.Qdrant.Host),
		zap.String("neo4j_uri", cfg.Neo4j.URI))

	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	defer deps.Close(logger)

	eng, err := engine.New(deps.embedder, deps.vectorStore, deps.graphStore, engine.Config{
		PatternMatchThreshold: cfg.Retrieval.PatternMatchThreshold,
		AlignmentThreshold:    cfg.Retrieval.AlignmentThreshold,
	}, logger.Named("engine"))
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	srv, err := mcpserver.NewServer(&mcpserver.Config{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
		Logger:  logger.Named("mcp"),
	}, eng)
	if err != nil {
		return fmt.Errorf("building MCP server: %w", err)
	}

	return srv.Run(ctx)
}

// dependencies holds the backing stores behind the engine.
type dependencies struct {
	embedder    *embeddings.Service
	vectorStore *vectorstore.QdrantStore
	graphStore  *graphstore.Store
}

// Close releases store connections. Shutdown is bounded so a hung backend
// cannot block exit.
func (d *dependencies) Close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if d.graphStore != nil {
		if err := d.graphStore.Close(ctx); err != nil {
			logger.Warn("closing graph store", zap.Error(err))
		}
	}
	if d.vectorStore != nil {
		if err := d.vectorStore.Close(); err != nil {
			logger.Warn("closing vector store", zap.Error(err))
		}
	}
}

// initDependencies connects the embedding client, vector store, and graph
// store from configuration.
func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	embedder, err := embeddings.NewService(embeddings.Config{
		BaseURL:      cfg.Embeddings.BaseURL,
		Model:        cfg.Embeddings.Model,
		APIKey:       cfg.Embeddings.APIKey.Value(),
		MaxBatchSize: cfg.Embeddings.MaxBatchSize,
		Timeout:      cfg.Embeddings.Timeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}

	logger.Info("Embedding service initialized",
		zap.String("base_url", cfg.Embeddings.BaseURL),
		zap.String("model", cfg.Embeddings.Model))

	vectorStore, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		UseTLS:     cfg.Qdrant.UseTLS,
		VectorSize: cfg.Qdrant.VectorSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	logger.Info("Vector store initialized",
		zap.String("host", cfg.Qdrant.Host),
		zap.Int("port", cfg.Qdrant.Port))

	graphStore, err := graphstore.NewStore(graphstore.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password.Value(),
	}, logger.Named("graphstore"))
	if err != nil {
		_ = vectorStore.Close()
		return nil, fmt.Errorf("creating graph store: %w", err)
	}

	return &dependencies{
		embedder:    embedder,
		vectorStore: vectorStore,
		graphStore:  graphStore,
	}, nil
}
