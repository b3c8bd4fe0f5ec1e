package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kalambet/draftsmith/internal/apperr"
)

// EnsureReady checks that the Engine is reachable and the model is
// available. A missing model is pulled when the backend supports it, with
// progress output written to w.
func EnsureReady(ctx context.Context, e Engine, model string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return apperr.New(apperr.CompletionUnreachable, "%s is not running; please ensure the backend is started", e.Name())
	}
	if model == "" {
		return nil
	}
	if e.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
		return nil
	}

	fmt.Fprintf(w, "model %s: pulling...\n", model)
	err := e.PullModel(ctx, model, func(p PullProgress) {
		if p.Total > 0 {
			pct := float64(p.Completed) / float64(p.Total) * 100
			fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
		} else {
			fmt.Fprintf(w, "  %s\n", p.Status)
		}
	})
	if errors.Is(err, ErrPullUnsupported) {
		return apperr.New(apperr.ModelNotFound, "model %s is not loaded in %s", model, e.Name())
	}
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	fmt.Fprintf(w, "model %s: ready\n", model)
	return nil
}
