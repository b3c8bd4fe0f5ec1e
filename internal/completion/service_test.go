package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/engine"
)

// fakeEngine replays scripted results; the last one repeats.
type fakeEngine struct {
	mu      sync.Mutex
	results []result
	calls   int
	block   bool
	lastMsg []engine.Message
	lastGen engine.GenOptions
}

type result struct {
	text string
	err  error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Chat(ctx context.Context, _ string, msgs []engine.Message, gen engine.GenOptions) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastMsg, f.lastGen = msgs, gen
	i := f.calls - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := result{}
	if i >= 0 {
		r = f.results[i]
	}
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.text, r.err
}

func (f *fakeEngine) IsRunning(context.Context) bool               { return true }
func (f *fakeEngine) ListModels(context.Context) ([]string, error) { return []string{"m"}, nil }
func (f *fakeEngine) HasModel(_ context.Context, n string) bool    { return n == "m" }
func (f *fakeEngine) PullModel(context.Context, string, func(engine.PullProgress)) error {
	return nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func unreachable() error {
	return apperr.Wrap(errors.New("connection refused"), apperr.CompletionUnreachable, "cannot reach fake")
}

func testOptions() Options {
	return Options{Model: "m", Timeout: time.Second, MaxRetries: 2, RetryDelay: time.Millisecond}
}

func TestComplete_Success(t *testing.T) {
	f := &fakeEngine{results: []result{{text: "  [[body]]\nHello.\n"}}}
	s := New(f, testOptions())

	out, err := s.Complete(context.Background(), Request{System: "sys", Prompt: "p", Temperature: 0.7, MaxTokens: 800})
	require.NoError(t, err)
	assert.Equal(t, "[[body]]\nHello.", out)
	require.Len(t, f.lastMsg, 2)
	assert.Equal(t, "system", f.lastMsg[0].Role)
	assert.Equal(t, "p", f.lastMsg[1].Content)
	assert.Equal(t, engine.GenOptions{Temperature: 0.7, MaxTokens: 800}, f.lastGen)
}

func TestComplete_RetriesTransient(t *testing.T) {
	f := &fakeEngine{results: []result{{err: unreachable()}, {err: unreachable()}, {text: "ok"}}}
	s := New(f, testOptions())

	out, err := s.Complete(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, f.callCount())
}

func TestComplete_RetriesBounded(t *testing.T) {
	f := &fakeEngine{results: []result{{err: unreachable()}}}
	s := New(f, testOptions())

	_, err := s.Complete(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.CompletionUnreachable))
	assert.Equal(t, 3, f.callCount(), "one call plus two retries")
}

func TestComplete_NoRetryForPermanentFailures(t *testing.T) {
	cases := map[string]struct {
		res  result
		kind apperr.Kind
	}{
		"model missing": {result{err: apperr.New(apperr.ModelNotFound, "no model")}, apperr.ModelNotFound},
		"empty":         {result{text: "  \n"}, apperr.CompletionMalformed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := &fakeEngine{results: []result{tc.res}}
			_, err := New(f, testOptions()).Complete(context.Background(), Request{Prompt: "p"})
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
			assert.Equal(t, 1, f.callCount())
		})
	}
}

func TestComplete_Timeout(t *testing.T) {
	f := &fakeEngine{block: true}
	opts := testOptions()
	opts.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := New(f, opts).Complete(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.CompletionTimeout), "got %v", err)
	assert.Equal(t, 1, f.callCount())
	assert.Less(t, time.Since(start), time.Second)
}

func TestComplete_BreakerOpens(t *testing.T) {
	f := &fakeEngine{results: []result{{err: unreachable()}}}
	opts := testOptions()
	opts.MaxRetries = 0
	opts.TripAfter = 2
	opts.OpenDuration = time.Minute
	s := New(f, opts)

	for i := 0; i < 2; i++ {
		_, err := s.Complete(context.Background(), Request{Prompt: "p"})
		require.Error(t, err)
	}
	assert.Equal(t, "open", s.Check(context.Background()).Breaker)

	_, err := s.Complete(context.Background(), Request{Prompt: "p"})
	assert.True(t, errors.Is(err, apperr.CompletionUnreachable))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, f.callCount(), "open breaker does not reach the engine")
}

func TestComplete_RejectionsDoNotTrip(t *testing.T) {
	f := &fakeEngine{results: []result{{err: apperr.New(apperr.ModelNotFound, "no model")}}}
	opts := testOptions()
	opts.TripAfter = 1
	s := New(f, opts)

	for i := 0; i < 3; i++ {
		_, _ = s.Complete(context.Background(), Request{Prompt: "p"})
	}
	assert.Equal(t, 3, f.callCount())
	assert.Equal(t, "closed", s.Check(context.Background()).Breaker)
}

func TestCheck(t *testing.T) {
	st := New(&fakeEngine{}, testOptions()).Check(context.Background())
	assert.Equal(t, Status{Backend: "fake", Model: "m", Running: true, HasModel: true, Breaker: "closed"}, st)
}
