// Package models provides shared data structures for the screenshot analysis service
package models

import (
	"time"

	"github.com/example/screenshotai/internal/claude"
	"github.com/example/screenshotai/internal/imaging"
)

// DefaultSource is assumed when a submission carries no source tag.
const DefaultSource = "iOS"

// ScreenshotMetadata is optional caller-supplied context for a submission.
type ScreenshotMetadata struct {
	Source       string `json:"source,omitempty"`
	App          string `json:"app,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Location     string `json:"location,omitempty"`
	AutoDetected bool   `json:"auto_detected,omitempty"`
}

// AnalysisRecord is the immutable enriched result of one submission. Records
// are created once by the pipeline and owned by the store afterwards.
type AnalysisRecord struct {
	ID           string                 `json:"id"`
	Image        imaging.ProcessedImage `json:"image_data"`
	BriefSummary string                 `json:"brief_summary"`
	Content      claude.ContentAnalysis `json:"content_analysis"`
	Metadata     ScreenshotMetadata     `json:"metadata"`
	CreatedAt    time.Time              `json:"timestamp"`
	Source       string                 `json:"source"`
}

// ProcessingResult is returned to the caller for every submission. Exactly one
// of the success fields or Error is populated.
type ProcessingResult struct {
	Success           bool      `json:"success"`
	Summary           string    `json:"summary,omitempty"`
	AnalysisID        string    `json:"analysis_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	FollowUpAvailable bool      `json:"follow_up_available,omitempty"`
	Source            string    `json:"source,omitempty"`
	Error             string    `json:"error,omitempty"`
}

// ServerStatus is a point-in-time snapshot of the running service.
type ServerStatus struct {
	Server                  string     `json:"server"`
	Status                  string     `json:"status"`
	LocalIP                 string     `json:"local_ip"`
	Port                    int        `json:"port"`
	TotalRequests           uint64     `json:"total_requests"`
	LastRequest             *time.Time `json:"last_request,omitempty"`
	ActiveAnalyses          int        `json:"active_analyses"`
	TelegramConfigured      bool       `json:"telegram_configured"`
	DesktopDetectionEnabled bool       `json:"desktop_detection_enabled"`
}

// ScreenshotSummary is the listing shape exposed to the UI for a record.
type ScreenshotSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Analysis  string    `json:"analysis"`
	Source    string    `json:"source"`
}

// Summary converts a record into its UI listing shape. Records without a
// caller-supplied filename get a synthetic name derived from the ID.
func (r *AnalysisRecord) Summary() ScreenshotSummary {
	name := r.Metadata.Filename
	if name == "" {
		short := r.ID
		if len(short) > 8 {
			short = short[:8]
		}
		name = "screenshot-" + short + ".png"
	}
	return ScreenshotSummary{
		ID:        r.ID,
		Name:      name,
		Size:      r.Image.SizeBytes,
		Type:      r.Image.MediaType,
		Timestamp: r.CreatedAt,
		Status:    "completed",
		Analysis:  r.BriefSummary,
		Source:    r.Source,
	}
}
