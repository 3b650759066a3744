// Copyright 2026 © The RetailQA Authors
// SPDX-License-Identifier: Apache-2.0

// Command retailqa answers natural-language questions about a retail
// invoice dataset. It loads and cleans the workbook, computes KPIs,
// indexes per-invoice documents for retrieval, and then reads questions
// interactively, routing each one to a numeric or semantic engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jllopis/retailqa/pkg/app"
	"github.com/jllopis/retailqa/pkg/config"
	qaerrors "github.com/jllopis/retailqa/pkg/errors"
	"github.com/jllopis/retailqa/pkg/index"
	"github.com/jllopis/retailqa/pkg/index/qdrant"
	"github.com/jllopis/retailqa/pkg/llm"
	"github.com/jllopis/retailqa/pkg/llm/gemini"
	"github.com/jllopis/retailqa/pkg/mcpserver"
	"github.com/jllopis/retailqa/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		if qe := qaerrors.AsQAError(err); qe != nil {
			fmt.Fprintf(os.Stderr, "retailqa: %s: %s\n", qe.Code, qe.Message)
		} else {
			fmt.Fprintf(os.Stderr, "retailqa: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		dataPath   = flag.String("data", "", "path to the invoice workbook (overrides config)")
		question   = flag.String("question", "", "answer a single question and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("retailqa", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := telemetry.NewQuestionMetrics()
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, embedder, err := buildLLM(ctx, cfg, logger)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	a, err := app.New(ctx, provider, embedder, store, app.Options{
		DataPath:    cfg.Data.Path,
		DataFormat:  cfg.Data.Format,
		MaxRows:     cfg.Index.MaxRows,
		TopK:        cfg.Index.TopK,
		Collection:  cfg.Index.Collection,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	if cfg.MCP.Enabled {
		srv := mcpserver.New(a, "retailqa", version)
		httpSrv := srv.StreamableHTTPServer()
		go func() {
			logger.Info("mcp server listening", "addr", cfg.MCP.Addr)
			if err := httpSrv.Start(cfg.MCP.Addr); err != nil {
				logger.Error("mcp server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	if *question != "" {
		answer, err := a.Ask(ctx, *question)
		if err != nil {
			return err
		}
		fmt.Println(answer.Text)
		if answer.Evaluation != nil {
			fmt.Printf("Evaluation: %s (llm=%.2f truth=%.2f error=%.2f)\n",
				answer.Evaluation.Status, answer.Evaluation.LLMValue,
				answer.Evaluation.GroundTruth, answer.Evaluation.AbsoluteError)
		}
		return nil
	}

	return a.RunLoop(ctx, os.Stdin, os.Stdout)
}

func buildLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Provider, llm.Embedder, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		provider, err := gemini.New(ctx, cfg.LLM.APIKey)
		if err != nil {
			return nil, nil, err
		}
		embedder, err := gemini.NewEmbedder(ctx, cfg.LLM.APIKey, cfg.LLM.EmbedModel)
		if err != nil {
			return nil, nil, err
		}
		return provider, embedder, nil

	case "mock":
		// A deterministic offline stack, useful for demos and smoke tests.
		logger.Warn("using the mock LLM provider, answers are canned")
		return &llm.MockProvider{Response: `{"op": "total_revenue"}`}, &llm.MockEmbedder{Dim: 16}, nil

	default:
		return nil, nil, qaerrors.New(qaerrors.CodeInvalidInput,
			fmt.Sprintf("unknown llm provider %q", cfg.LLM.Provider), nil)
	}
}

func buildStore(cfg *config.Config, logger *slog.Logger) (index.VectorStore, func(), error) {
	switch cfg.Index.Provider {
	case "inmemory":
		return index.NewInMemoryStore(), func() {}, nil

	case "sqlite":
		store, err := index.OpenSQLiteStore(cfg.Index.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite vector store", "path", cfg.Index.SQLitePath)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close sqlite store", "error", err)
			}
		}, nil

	case "qdrant":
		store, err := qdrant.New(cfg.Index.QdrantAddr)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using qdrant vector store", "addr", cfg.Index.QdrantAddr)
		return store, func() {}, nil

	default:
		return nil, nil, qaerrors.New(qaerrors.CodeInvalidInput,
			fmt.Sprintf("unknown index provider %q", cfg.Index.Provider), nil)
	}
}
