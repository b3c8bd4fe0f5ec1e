// Package completion wraps an inference engine with the per-request timeout,
// bounded retry and circuit breaking the generator relies on.
package completion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/engine"
)

// Request is one completion call.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Options configures the service.
type Options struct {
	Model        string
	Timeout      time.Duration // per attempt
	MaxRetries   int
	RetryDelay   time.Duration
	TripAfter    uint32        // consecutive failures that open the breaker
	OpenDuration time.Duration // how long the breaker stays open
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Model:        "qwen2.5:7b",
		Timeout:      120 * time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Second,
		TripAfter:    5,
		OpenDuration: 30 * time.Second,
	}
}

// Completer is what the generator needs from a completion backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Service calls an Engine with a timeout per attempt, retries transient
// failures, and stops calling a backend that keeps failing.
type Service struct {
	eng  engine.Engine
	opts Options
	cb   *gobreaker.CircuitBreaker
}

// New creates a Service. Zero durations and thresholds fall back to the
// defaults.
func New(eng engine.Engine, opts Options) *Service {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = def.TripAfter
	}
	if opts.OpenDuration <= 0 {
		opts.OpenDuration = def.OpenDuration
	}

	tripAfter := opts.TripAfter
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        eng.Name(),
		MaxRequests: 1,
		Timeout:     opts.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("completion circuit breaker", "backend", name, "from", from.String(), "to", to.String())
		},
		// Rejected requests do not count against the backend.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch apperr.KindOf(err) {
			case apperr.ModelNotFound, apperr.CompletionMalformed:
				return true
			}
			return errors.Is(err, context.Canceled)
		},
	})
	return &Service{eng: eng, opts: opts, cb: cb}
}

// Engine returns the backend the service calls.
func (s *Service) Engine() engine.Engine { return s.eng }

// Model returns the configured model name.
func (s *Service) Model() string { return s.opts.Model }

// Complete sends the prompt and returns the generated text. Only
// CompletionUnreachable failures are retried, and not while the breaker is
// open. Timeouts, missing models and empty responses are returned at once.
func (s *Service) Complete(ctx context.Context, req Request) (string, error) {
	var msgs []engine.Message
	if req.System != "" {
		msgs = append(msgs, engine.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, engine.Message{Role: "user", Content: req.Prompt})
	gen := engine.GenOptions{Temperature: req.Temperature, MaxTokens: req.MaxTokens}

	backoff := retry.WithMaxRetries(uint64(s.opts.MaxRetries), retry.NewExponential(s.opts.RetryDelay))

	var out string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		text, err := s.attempt(ctx, msgs, gen)
		if err == nil {
			out = text
			return nil
		}
		if apperr.KindOf(err) == apperr.CompletionUnreachable && !errors.Is(err, gobreaker.ErrOpenState) && ctx.Err() == nil {
			slog.Warn("completion attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && apperr.KindOf(err) == apperr.Internal {
			return "", apperr.Wrap(err, apperr.CompletionTimeout, "completion deadline exceeded")
		}
		return "", err
	}
	return out, nil
}

func (s *Service) attempt(ctx context.Context, msgs []engine.Message, gen engine.GenOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.eng.Chat(ctx, s.opts.Model, msgs, gen)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", apperr.Wrap(err, apperr.CompletionUnreachable, "%s is failing repeatedly, not retrying for now", s.eng.Name())
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && apperr.KindOf(err) == apperr.Internal {
			return "", apperr.Wrap(err, apperr.CompletionTimeout, "no answer within %s", s.opts.Timeout)
		}
		return "", err
	}

	text := strings.TrimSpace(res.(string))
	if text == "" {
		return "", apperr.New(apperr.CompletionMalformed, "model %s returned an empty response", s.opts.Model)
	}
	return text, nil
}

// Status summarizes backend health for the status command.
type Status struct {
	Backend  string
	Model    string
	Running  bool
	HasModel bool
	Breaker  string
}

// Check probes the backend without generating anything.
func (s *Service) Check(ctx context.Context) Status {
	st := Status{Backend: s.eng.Name(), Model: s.opts.Model, Breaker: s.cb.State().String()}
	st.Running = s.eng.IsRunning(ctx)
	if st.Running {
		st.HasModel = s.eng.HasModel(ctx, s.opts.Model)
	}
	return st
}
