package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/storage"
	"github.com/kalambet/draftsmith/internal/style"
)

// Learning sources recorded in the history.
const (
	SourceSamples     = "samples"
	SourceInteractive = "interactive"
)

// LearnRecorder keeps a log of learning operations.
type LearnRecorder interface {
	RecordLearning(e storage.LearnEvent) error
}

// Learner applies style learning to stored profiles.
type Learner struct {
	mgr      *Manager
	analyzer *style.Analyzer
	history  LearnRecorder
}

// NewLearner creates a Learner. history may be nil.
func NewLearner(mgr *Manager, analyzer *style.Analyzer, history LearnRecorder) *Learner {
	return &Learner{mgr: mgr, analyzer: analyzer, history: history}
}

// LearnSamples folds sample emails into the user's profile in order. When no
// sample carries usable text nothing is saved.
func (l *Learner) LearnSamples(ctx context.Context, userID string, samples []string) (style.Profile, style.LearnReport, error) {
	if len(samples) == 0 {
		return style.Profile{}, style.LearnReport{}, apperr.New(apperr.InvalidRequest, "no samples given")
	}

	var report style.LearnReport
	p, err := l.mgr.Update(ctx, userID, func(p style.Profile) (style.Profile, error) {
		var out style.Profile
		out, report = l.analyzer.LearnFromEmails(p, samples)
		if report.Applied == 0 {
			return p, apperr.New(apperr.InvalidRequest, "none of the %d samples contained usable text", len(samples))
		}
		return out, nil
	})
	if err != nil {
		return style.Profile{}, report, err
	}

	l.record(storage.LearnEvent{
		UserID:  userID,
		Source:  SourceSamples,
		Applied: report.Applied,
		Skipped: report.Skipped,
	}, p.UpdatedAt)
	slog.Info("learned from samples", "user", userID, "applied", report.Applied, "skipped", report.Skipped, "samples", p.SampleCount)
	return p, report, nil
}

// ApplySetup folds the answers of an interactive setup session into the
// user's profile. A session without answers changes nothing.
func (l *Learner) ApplySetup(ctx context.Context, userID string, s style.SetupState) (style.Profile, error) {
	if s.Overrides().Empty() {
		return style.Profile{}, apperr.New(apperr.InvalidRequest, "setup finished without any answers")
	}
	p, err := l.mgr.Update(ctx, userID, func(p style.Profile) (style.Profile, error) {
		return l.analyzer.FinishSetup(p, s), nil
	})
	if err != nil {
		return style.Profile{}, err
	}

	l.record(storage.LearnEvent{UserID: userID, Source: SourceInteractive, Applied: 1}, p.UpdatedAt)
	slog.Info("applied interactive setup", "user", userID, "samples", p.SampleCount)
	return p, nil
}

// record logs the event. The profile is already saved at this point, so a
// history failure is only reported.
func (l *Learner) record(e storage.LearnEvent, at time.Time) {
	if l.history == nil {
		return
	}
	e.CreatedAt = at
	if err := l.history.RecordLearning(e); err != nil {
		slog.Warn("learning history not recorded", "user", e.UserID, "error", err)
	}
}
