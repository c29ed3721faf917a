// Package orchestrator runs the full pipeline for one search: collect
// candidate entity pages, extract the top slice in parallel batches,
// enrich from external websites, and assemble an ordered result set.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/placescout/placescout/internal/metrics"
	"github.com/placescout/placescout/internal/normalizer"
	"github.com/placescout/placescout/internal/scout"
)

// Searcher walks the search feed and yields ordered candidates.
type Searcher interface {
	SearchURL(term string) string
	Collect(ctx context.Context, sess scout.Session, term string, target int) ([]scout.CandidateRef, error)
}

// Extractor loads one candidate page and produces its record.
type Extractor interface {
	Extract(ctx context.Context, sess scout.Session, candidate scout.CandidateRef, searchQuery string) (*scout.EntityRecord, error)
}

// Enricher mines an entity's external website.
type Enricher interface {
	Enrich(ctx context.Context, websiteURL string) (scout.Enrichment, error)
}

// SessionSource scopes browser session ownership. Capacity doubles as
// the extraction batch width.
type SessionSource interface {
	With(ctx context.Context, fn func(scout.Session) error) error
	Capacity() int
}

// Config controls pacing between extraction batches.
type Config struct {
	BatchDelay    time.Duration
	BatchJitter   time.Duration
	ArchivePrefix string
}

// Orchestrator coordinates one run end to end.
type Orchestrator struct {
	cfg       Config
	sessions  SessionSource
	collector Searcher
	extractor Extractor
	enricher  Enricher
	archive   scout.BlobStore
	clock     scout.Clock
	logger    *zap.Logger
}

// New wires the pipeline stages together. The enricher and archive are
// optional; a nil archive disables page snapshots and a nil enricher
// skips website mining.
func New(cfg Config, sessions SessionSource, collector Searcher, extractor Extractor, enricher Enricher, archive scout.BlobStore, clock scout.Clock, logger *zap.Logger) *Orchestrator {
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 1200 * time.Millisecond
	}
	if cfg.BatchJitter <= 0 {
		cfg.BatchJitter = 800 * time.Millisecond
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "runs"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		sessions:  sessions,
		collector: collector,
		extractor: extractor,
		enricher:  enricher,
		archive:   archive,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes the pipeline for one parameter set. Individual entity
// failures degrade to shallow records carrying the error text; only an
// invalid query, a failed search navigation, or cancellation abort the
// run. runID tags logs and archived artifacts.
func (o *Orchestrator) Run(ctx context.Context, runID string, params scout.RunParameters) (*scout.RunResult, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, scout.ErrEmptyQuery
	}
	params = params.Normalize()
	term := params.SearchString()

	logger := o.logger.With(zap.String("run_id", runID), zap.String("term", term))
	logger.Info("run starting",
		zap.Int("max_results", params.MaxResults),
		zap.Int("detailed_results", params.DetailedResults),
	)

	var candidates []scout.CandidateRef
	err := o.sessions.With(ctx, func(sess scout.Session) error {
		var collectErr error
		candidates, collectErr = o.collector.Collect(ctx, sess, term, params.MaxResults)
		return collectErr
	})
	if err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}

	records := make([]*scout.EntityRecord, len(candidates))
	detailed := len(candidates)
	if params.DetailedResults < detailed {
		detailed = params.DetailedResults
	}

	if err := o.extractBatches(ctx, runID, candidates[:detailed], term, records, logger); err != nil {
		return nil, err
	}

	// Candidates past the detailed cutoff still appear in the output,
	// reduced to their discovery metadata.
	for i := detailed; i < len(candidates); i++ {
		records[i] = shallowRecord(candidates[i], term, "")
	}

	result := &scout.RunResult{
		SearchString: term,
		SearchURL:    o.collector.SearchURL(term),
		ScrapedAt:    o.clock.Now().UTC(),
	}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		normalizer.Finalize(rec)
		metrics.ObserveEntity(rec.HasDetailedData)
		result.Records = append(result.Records, *rec)
		if rec.HasDetailedData {
			result.DetailedCount++
		}
	}
	result.TotalResults = len(result.Records)

	logger.Info("run finished",
		zap.Int("total", result.TotalResults),
		zap.Int("detailed", result.DetailedCount),
	)
	return result, nil
}

// extractBatches processes candidates in batches sized to the session
// pool, writing each finished record into its rank slot so output order
// never depends on goroutine scheduling.
func (o *Orchestrator) extractBatches(ctx context.Context, runID string, candidates []scout.CandidateRef, term string, records []*scout.EntityRecord, logger *zap.Logger) error {
	width := o.sessions.Capacity()
	if width <= 0 {
		width = 1
	}

	for start := 0; start < len(candidates); start += width {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run canceled: %w", err)
		}
		if start > 0 {
			if err := o.pause(ctx); err != nil {
				return fmt.Errorf("run canceled: %w", err)
			}
		}

		end := start + width
		if end > len(candidates) {
			end = len(candidates)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, candidate := range candidates[start:end] {
			g.Go(func() error {
				records[candidate.Rank-1] = o.processOne(gctx, runID, candidate, term, logger)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// processOne extracts and enriches a single candidate. Every failure
// mode yields a shallow record; neighbors in the batch are unaffected.
func (o *Orchestrator) processOne(ctx context.Context, runID string, candidate scout.CandidateRef, term string, logger *zap.Logger) *scout.EntityRecord {
	var rec *scout.EntityRecord
	err := o.sessions.With(ctx, func(sess scout.Session) error {
		var extractErr error
		rec, extractErr = o.extractor.Extract(ctx, sess, candidate, term)
		if extractErr != nil {
			return extractErr
		}
		o.snapshot(ctx, sess, runID, candidate.Rank, logger)
		return nil
	})
	if err != nil {
		logger.Warn("entity extraction failed",
			zap.Int("rank", candidate.Rank),
			zap.String("url", candidate.CanonicalURL),
			zap.Error(err),
		)
		return shallowRecord(candidate, term, err.Error())
	}

	if o.enricher != nil && rec.Website != nil {
		enrichment, enrichErr := o.enricher.Enrich(ctx, *rec.Website)
		if enrichErr != nil {
			logger.Debug("website enrichment failed",
				zap.Int("rank", candidate.Rank),
				zap.String("website", *rec.Website),
				zap.Error(enrichErr),
			)
		}
		rec.Merge(enrichment)
	}
	return rec
}

// snapshot archives the rendered page HTML when an archive is wired.
func (o *Orchestrator) snapshot(ctx context.Context, sess scout.Session, runID string, rank int, logger *zap.Logger) {
	if o.archive == nil {
		return
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		logger.Debug("page snapshot read failed", zap.Int("rank", rank), zap.Error(err))
		return
	}
	path := fmt.Sprintf("%s/%s/pages/%03d.html", o.cfg.ArchivePrefix, runID, rank)
	if _, err := o.archive.PutObject(ctx, path, "text/html; charset=utf-8", []byte(html)); err != nil {
		logger.Warn("page snapshot upload failed", zap.String("path", path), zap.Error(err))
	}
}

// pause waits the jittered inter-batch delay, honoring cancellation.
func (o *Orchestrator) pause(ctx context.Context) error {
	delay := o.cfg.BatchDelay
	if o.cfg.BatchJitter > 0 {
		delay += rand.N(o.cfg.BatchJitter)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shallowRecord(candidate scout.CandidateRef, term, errText string) *scout.EntityRecord {
	return &scout.EntityRecord{
		Rank:        candidate.Rank,
		PlaceURL:    candidate.CanonicalURL,
		SearchQuery: term,
		Error:       errText,
	}
}
