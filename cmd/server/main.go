package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/Simplici0/printcost/internal/config"
	"github.com/Simplici0/printcost/internal/db"
	"github.com/Simplici0/printcost/internal/logger"
	"github.com/Simplici0/printcost/internal/migrations"
	"github.com/Simplici0/printcost/internal/pipeline"
	"github.com/Simplici0/printcost/internal/report"
	"github.com/Simplici0/printcost/internal/seed"
	"github.com/Simplici0/printcost/internal/store"
)

type server struct {
	cfg         config.Config
	estimations *store.Estimations
	documents   *store.Documents
	pipeline    *pipeline.Orchestrator
	reports     *report.Reports
}

func newServer(database *sqlx.DB, cfg config.Config) *server {
	estimations := store.NewEstimations(database)
	documents := store.NewDocuments(database)

	return &server{
		cfg:         cfg,
		estimations: estimations,
		documents:   documents,
		pipeline: pipeline.New(pipeline.Deps{
			Estimations: estimations,
			Documents:   documents,
			Catalog:     store.NewCatalog(database),
			BOMs:        store.NewBOMs(database),
			Warehouses: pipeline.Warehouses{
				Source:        cfg.Warehouses.Source,
				FinishedGoods: cfg.Warehouses.FinishedGoods,
				Scrap:         cfg.Warehouses.Scrap,
			},
		}),
		reports: report.New(database),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/estimations", func(r chi.Router) {
		r.Post("/", s.handleCreateEstimation)
		r.Post("/preview", s.handlePreview)

		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetEstimation)
			r.Put("/", s.handleUpdateEstimation)

			r.Post("/refresh", s.handleEstimationStep(s.pipeline.RefreshCalculations))
			r.Post("/submit", s.handleEstimationStep(s.pipeline.Submit))
			r.Post("/cancel", s.handleEstimationStep(s.pipeline.Cancel))
			r.Post("/fetch-rate", s.handleEstimationStep(s.pipeline.AutoFetchRate))
			r.Post("/sample-bom", s.handleSampleBOM)

			r.Post("/quotation", s.handleCreateDocument(pipeline.KindQuotation, s.pipeline.CreateQuotation))
			r.Post("/sales-order", s.handleCreateDocument(pipeline.KindSalesOrder, s.pipeline.CreateSalesOrder))
			r.Post("/work-order", s.handleCreateDocument(pipeline.KindWorkOrder, s.pipeline.CreateWorkOrder))
			r.Post("/stock-entries", s.handleStockEntries)

			r.Get("/flow", s.handleFlow)
			r.Get("/breakdown", s.handleBreakdown)
			r.Get("/report.pdf", s.handleEstimationPDF)
		})
	})

	r.Get("/reports/summary", s.handleSummary)
	r.Get("/reports/summary.xlsx", s.handleSummaryXLSX)

	r.Get("/documents/{kind}/{id}", s.handleGetDocument)
	r.Post("/documents/{kind}/{id}/status", s.handleDocumentStatus)

	return r
}

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := migrations.Up(database.DB); err != nil {
		slog.Error("failed to run database migrations", "error", err)
		os.Exit(1)
	}

	if cfg.IsDev() {
		stats, err := seed.Run(database.DB)
		if err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
		slog.Info("seed completed", "inserts", stats.Inserts, "updates", stats.Updates)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(database, cfg).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
