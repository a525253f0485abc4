// Package pipeline runs a submission through validation, AI enrichment,
// retention and notification.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/screenshotai/internal/claude"
	"github.com/example/screenshotai/internal/imaging"
	"github.com/example/screenshotai/internal/models"
	"github.com/example/screenshotai/internal/store"
)

// Analyzer produces the AI enrichment for a validated image.
type Analyzer interface {
	BriefSummary(ctx context.Context, img *imaging.ProcessedImage, source string) (string, error)
	AnalyzeContent(ctx context.Context, img *imaging.ProcessedImage) claude.ContentAnalysis
}

// Notifier delivers a best-effort notification for a completed record.
type Notifier interface {
	Send(rec *models.AnalysisRecord) error
}

// Pipeline is the ingestion-enrichment pipeline shared by the HTTP intake and
// the filesystem watcher.
type Pipeline struct {
	ai       Analyzer
	store    *store.Store
	notifier Notifier // nil when no messaging service is configured
	log      *zap.Logger
}

// New creates a Pipeline. notifier may be nil.
func New(ai Analyzer, st *store.Store, notifier Notifier, log *zap.Logger) *Pipeline {
	return &Pipeline{ai: ai, store: st, notifier: notifier, log: log}
}

// Process runs one submission end to end and always returns a well-formed
// result; pipeline failures are reported inside it, never as an error value.
// One submission's failure cannot affect any other submission.
func (p *Pipeline) Process(ctx context.Context, imageBase64 string, meta models.ScreenshotMetadata) *models.ProcessingResult {
	count := p.store.RecordRequest()
	now := time.Now().UTC()

	source := meta.Source
	if source == "" {
		source = models.DefaultSource
	}

	p.log.Info("processing screenshot",
		zap.Uint64("request", count),
		zap.String("source", source))

	img, err := imaging.Prepare(imageBase64)
	if err != nil {
		p.log.Warn("screenshot rejected", zap.Error(err))
		return failure(now, err)
	}

	summary, err := p.ai.BriefSummary(ctx, img, source)
	if err != nil {
		p.log.Error("summary call failed", zap.Error(err))
		return failure(now, err)
	}

	content := p.ai.AnalyzeContent(ctx, img)

	rec := &models.AnalysisRecord{
		ID:           uuid.NewString(),
		Image:        *img,
		BriefSummary: summary,
		Content:      content,
		Metadata:     meta,
		CreatedAt:    now,
		Source:       source,
	}
	p.store.Insert(rec)

	// Notification is a side channel: fire and forget, outcome logged only.
	if p.notifier != nil {
		go func() {
			if err := p.notifier.Send(rec); err != nil {
				p.log.Warn("failed to send telegram notification", zap.Error(err))
			}
		}()
	}

	p.log.Info("screenshot processed", zap.String("analysis_id", rec.ID))

	return &models.ProcessingResult{
		Success:           true,
		Summary:           summary,
		AnalysisID:        rec.ID,
		Timestamp:         now,
		FollowUpAvailable: true,
		Source:            source,
	}
}

func failure(at time.Time, err error) *models.ProcessingResult {
	return &models.ProcessingResult{
		Success:   false,
		Timestamp: at,
		Error:     err.Error(),
	}
}
