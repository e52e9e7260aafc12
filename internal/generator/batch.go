package generator

import (
	"context"
	"time"

	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/eventbus"
	"github.com/miniworld/modgen/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Progress is reported once per creature of a batch, after it was attempted.
type Progress struct {
	Index    int              `json:"index"`
	Total    int              `json:"total"`
	Creature catalog.Creature `json:"creature"`
	ModID    int64            `json:"mod_id"`
	ResultID int64            `json:"result_id"`
	Error    string           `json:"error,omitempty"`
}

// ProgressFunc receives batch progress. It runs on the batch goroutine.
type ProgressFunc func(Progress)

// BatchRunner generates the highest tier of every family in a catalog.
type BatchRunner struct {
	deps
}

// BatchRunner returns a runner sharing the service's allocator and hooks.
func (s *Service) BatchRunner() *BatchRunner {
	return &BatchRunner{deps: s.deps}
}

// RunAll walks cat's families in order. For each family's highest tier it
// draws a mod id and a result id, then synthesizes. A synthesis failure is
// recorded in Failures and the run continues; its ids stay consumed. An
// allocator failure aborts the run and returns the partial result with the
// error.
func (r *BatchRunner) RunAll(ctx context.Context, cat *catalog.Catalog, author string, progress ProgressFunc) (*models.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "generator.RunAll")
	defer span.End()

	author, err := ValidateAuthor(author)
	if err != nil {
		r.metrics.Failed("validation")
		return nil, err
	}

	creatures := cat.HighestTiers()
	span.SetAttributes(attribute.Int("families", len(creatures)))

	out := &models.BatchResult{
		Author:    author,
		Results:   make([]*models.GenerationResult, 0, len(creatures)),
		StartedAt: time.Now().UTC(),
	}
	report := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	var lastModID int64
	for i, cr := range creatures {
		modID, err := r.alloc.NextModID(ctx)
		if err != nil {
			return r.abort(ctx, out, allocationError("next mod id", err))
		}
		lastModID = modID
		resultID, err := r.alloc.ConsumeResultID(ctx)
		if err != nil {
			return r.abort(ctx, out, allocationError("consume result id", err))
		}
		r.metrics.Allocated("mod_id")
		r.metrics.Allocated("result_id")

		p := Progress{Index: i + 1, Total: len(creatures), Creature: cr, ModID: modID, ResultID: resultID}
		req := models.GenerationRequest{ModID: modID, Creature: cr, Author: author}
		res, err := r.synthesize(ctx, req, resultID)
		if err != nil {
			r.logger.Warn("skipping creature",
				zap.Int("copy_id", cr.CopyID),
				zap.Int64("mod_id", modID),
				zap.Error(err),
			)
			out.Failures = append(out.Failures, models.BatchFailure{
				Creature: cr,
				ModID:    modID,
				ResultID: resultID,
				Error:    err.Error(),
			})
			p.Error = err.Error()
			report(p)
			continue
		}

		out.Results = append(out.Results, res)
		r.metrics.Generated("batch")
		r.publishBundle(ctx, res)
		report(p)
	}

	if lastModID > 0 {
		out.NextIDAfter = lastModID + 1
	} else {
		state, err := r.alloc.Snapshot(ctx)
		if err != nil {
			return r.abort(ctx, out, allocationError("snapshot", err))
		}
		out.NextIDAfter = state.NextID
	}
	out.Duration = time.Since(out.StartedAt)

	r.metrics.BatchFinished(out.Duration, len(out.Results))
	if err := r.events.Publish(ctx, eventbus.SubjectBatchCompleted, eventbus.BatchCompleted{
		Author:      author,
		Generated:   len(out.Results),
		Failed:      len(out.Failures),
		NextIDAfter: out.NextIDAfter,
		Duration:    out.Duration,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		r.logger.Warn("failed to publish batch event", zap.Error(err))
	}

	r.logger.Info("batch finished",
		zap.String("author", author),
		zap.Int("generated", len(out.Results)),
		zap.Int("failed", len(out.Failures)),
		zap.Int64("next_id_after", out.NextIDAfter),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}

func (r *BatchRunner) abort(ctx context.Context, out *models.BatchResult, err error) (*models.BatchResult, error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "batch aborted")
	r.metrics.Failed("allocation")
	out.Duration = time.Since(out.StartedAt)
	r.logger.Error("batch aborted",
		zap.Int("generated", len(out.Results)),
		zap.Error(err),
	)
	return out, err
}
