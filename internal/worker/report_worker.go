// Package worker answers dashboard report requests received over AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/analytics"
	"salesdash/internal/cache"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
)

// Consumer delivers report requests to a handler until ctx ends.
type Consumer interface {
	ConsumeReports(ctx context.Context, handler amqp.ReportHandler) error
}

// ReportWorker computes dashboard results for queued requests.
type ReportWorker struct {
	engine  *analytics.Engine
	results *cache.Loader[core.Result]
	logger  *applog.Logger
	events  *applog.StructuredLogger
}

// NewReportWorker creates a worker over engine. Results are cached for ttl,
// up to size distinct selections.
func NewReportWorker(engine *analytics.Engine, size int, ttl time.Duration, logger *applog.Logger) *ReportWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentWorker)
	return &ReportWorker{
		engine:  engine,
		results: cache.NewLoader(cache.NewLRUCache[core.Result](size, ttl)),
		logger:  logger,
		events:  applog.NewStructuredLogger(logger),
	}
}

// HandleReport resolves the request against the loaded dataset and computes
// it. Invalid selections are answered with an error response, not retried.
func (w *ReportWorker) HandleReport(ctx context.Context, req *amqp.ReportRequest) (*amqp.ReportResponse, error) {
	ds := w.engine.Dataset()
	given := req.Criteria()
	given.Categories = ds.ExpandCategories(req.Categories)
	c, err := ds.Resolve(given)
	if err != nil {
		w.logger.WarnContext(ctx, "Rejected report request",
			applog.FieldCorrelation, req.ID,
			applog.FieldError, err.Error())
		return amqp.NewReportError(req.ID, given, err), nil
	}

	res, hit, err := w.results.Get(c.Key(), func() (core.Result, error) {
		return w.engine.Compute(c), nil
	})
	if err != nil {
		return nil, fmt.Errorf("compute report %s: %w", req.ID, err)
	}
	w.events.LogComputed(ctx, c.Year, c.Categories, c.Start.String(), c.End.String(),
		res.KPIs.Count, res.KPIs.TopCategory, hit)

	return amqp.NewReportResponse(req.ID, c, res), nil
}

// Run consumes requests until ctx is canceled. A closed broker channel is
// returned as an error so the process can exit and be restarted.
func (w *ReportWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Report worker started", applog.FieldRowCount, w.engine.Dataset().Len())
	err := consumer.ConsumeReports(ctx, w.HandleReport)
	if errors.Is(err, context.Canceled) {
		w.logger.Info("Report worker stopped")
		return nil
	}
	return err
}

// Stats reports the worker's result cache counters.
func (w *ReportWorker) Stats() cache.Stats {
	return w.results.Cache().Stats()
}
