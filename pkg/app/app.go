// Copyright 2026 © The RetailQA Authors
// SPDX-License-Identifier: Apache-2.0

// Package app assembles the question-answering pipeline and drives the
// interactive loop. The pipeline is built once at startup: load and clean
// the invoice dataset, compute KPIs, synthesize retrieval documents and
// index them. Questions are then routed per call between the numeric
// table engine and the retrieval engine.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jllopis/retailqa/pkg/dataset"
	qaerrors "github.com/jllopis/retailqa/pkg/errors"
	"github.com/jllopis/retailqa/pkg/eval"
	"github.com/jllopis/retailqa/pkg/index"
	"github.com/jllopis/retailqa/pkg/llm"
	"github.com/jllopis/retailqa/pkg/query"
	"github.com/jllopis/retailqa/pkg/telemetry"
)

const prompt = "Ask a question (or type 'exit'): "

var tracer = otel.Tracer("github.com/jllopis/retailqa/pkg/app")

// Options configures pipeline assembly.
type Options struct {
	// DataPath locates the invoice workbook (xlsx or csv).
	DataPath string
	// DataFormat forces the file format. Empty means by file extension.
	DataFormat string
	// MaxRows bounds how many cleaned rows become retrieval documents.
	MaxRows int
	// TopK is the retrieval depth for the semantic path.
	TopK int
	// Collection names the vector collection holding invoice documents.
	Collection string
	// Model and Temperature apply to both query engines.
	Model       string
	Temperature float64
	// RouterKeywords overrides the numeric-route keyword set. Empty means
	// the default set.
	RouterKeywords []string

	Logger  *slog.Logger
	Metrics *telemetry.QuestionMetrics
}

// Answer is the outcome of a single question.
type Answer struct {
	Question string      `json:"question"`
	Route    query.Route `json:"route"`
	Text     string      `json:"text"`
	// Evaluation is set when the question asked for the total revenue and
	// ground truth was available to score the answer against.
	Evaluation *eval.Result `json:"evaluation,omitempty"`
}

// App holds the assembled pipeline.
type App struct {
	table    *dataset.Table
	kpis     dataset.KPISummary
	builder  *index.Builder
	router   *query.Router
	numeric  *query.TableEngine
	semantic *query.RAGEngine
	logger   *slog.Logger
	metrics  *telemetry.QuestionMetrics
}

// New builds the whole pipeline. Dataset and indexing failures are fatal
// here: without a cleaned table and an index there is nothing to serve.
func New(ctx context.Context, provider llm.Provider, embedder llm.Embedder, store index.VectorStore, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 100
	}
	if opts.Collection == "" {
		opts.Collection = "retail_invoices"
	}

	ctx, span := tracer.Start(ctx, "app.Build")
	defer span.End()

	var (
		table *dataset.Table
		err   error
	)
	if opts.DataFormat != "" {
		table, err = dataset.LoadFormat(opts.DataPath, opts.DataFormat)
	} else {
		table, err = dataset.Load(opts.DataPath)
	}
	if err != nil {
		return nil, err
	}
	kpis := dataset.ComputeKPIs(table)
	logger.Info("dataset ready",
		"rows", len(table.Records),
		"skipped", table.Skipped,
		"total_revenue", kpis.TotalRevenue)

	docs := index.SynthesizeDocuments(table, opts.MaxRows)
	builder := index.NewBuilder(store, embedder, opts.Collection, logger)
	if err := builder.BuildIndex(ctx, docs); err != nil {
		return nil, err
	}
	logger.Info("index ready", "documents", len(docs), "collection", opts.Collection)

	return &App{
		table:    table,
		kpis:     kpis,
		builder:  builder,
		router:   query.NewRouter(opts.RouterKeywords),
		numeric:  query.NewTableEngine(provider, opts.Model, opts.Temperature, table, kpis, logger),
		semantic: query.NewRAGEngine(builder, provider, opts.Model, opts.Temperature, opts.TopK, logger),
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// KPIs returns the summary computed over the cleaned table.
func (a *App) KPIs() dataset.KPISummary { return a.kpis }

// Table returns the cleaned invoice table.
func (a *App) Table() *dataset.Table { return a.table }

// Builder exposes the index for direct retrieval.
func (a *App) Builder() *index.Builder { return a.builder }

// Ask answers one question: route, run the matching engine, and evaluate
// the answer when the question asked for the total revenue.
func (a *App) Ask(ctx context.Context, question string) (Answer, error) {
	route := a.router.Route(question)

	ctx, span := tracer.Start(ctx, "app.Ask")
	defer span.End()
	span.SetAttributes(attribute.String("question.route", string(route)))

	a.metrics.RecordQuestion(ctx, string(route))
	start := time.Now()

	var (
		text string
		err  error
	)
	switch route {
	case query.RouteNumeric:
		text, err = a.numeric.Query(ctx, question)
	default:
		text, err = a.semantic.Query(ctx, question)
	}
	a.metrics.RecordLatency(ctx, string(route), float64(time.Since(start).Milliseconds()))
	if err != nil {
		code := string(qaerrors.CodeInternal)
		if qe := qaerrors.AsQAError(err); qe != nil {
			code = string(qe.Code)
		}
		a.metrics.RecordError(ctx, string(route), code)
		span.RecordError(err)
		return Answer{Question: question, Route: route}, err
	}

	answer := Answer{Question: question, Route: route, Text: text}
	if a.kpis.HasData && strings.Contains(strings.ToLower(question), "total revenue") {
		res := eval.EvaluateNumeric(text, a.kpis.TotalRevenue)
		answer.Evaluation = &res
	}
	return answer, nil
}

// RunLoop reads questions until EOF or an "exit" line. Per-question
// failures are reported and the loop continues; only fatal errors and a
// cancelled context stop it.
func (a *App) RunLoop(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, "exit") {
			return nil
		}

		answer, err := a.Ask(ctx, question)
		if err != nil {
			if qaerrors.IsFatal(err) {
				return err
			}
			a.logger.Error("question failed", "question", question, "error", err)
			fmt.Fprintf(out, "Sorry, that question could not be answered: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "[%s] %s\n", answer.Route, answer.Text)
		if answer.Evaluation != nil {
			a.printEvaluation(out, answer.Evaluation)
		}
	}
}

func (a *App) printEvaluation(out io.Writer, res *eval.Result) {
	fmt.Fprintf(out, "Evaluation: %s\n", res.Status)
	if res.Status == eval.StatusSuccess {
		fmt.Fprintf(out, "  LLM value:      %.2f\n", res.LLMValue)
		fmt.Fprintf(out, "  Ground truth:   %.2f\n", res.GroundTruth)
		fmt.Fprintf(out, "  Absolute error: %.2f\n", res.AbsoluteError)
	} else {
		fmt.Fprintf(out, "  No numeric value found in the answer (expected %.2f).\n", res.GroundTruth)
	}
}
