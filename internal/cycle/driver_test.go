package cycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/proxy"
	"github.com/nao1215/claimbot/internal/rotation"
	"github.com/nao1215/claimbot/internal/store"
)

type fakeCredentials struct {
	mu    sync.Mutex
	creds []*model.Credential
	errs  []error
	loads int
}

func (f *fakeCredentials) Name() string { return "token.txt" }

func (f *fakeCredentials) Load() ([]*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.creds, nil
}

type fakeProxies struct {
	specs []*proxy.Spec
	err   error
}

func (f *fakeProxies) Load() ([]*proxy.Spec, error) {
	return f.specs, f.err
}

// fakeRunner succeeds for every credential except the listed labels.
type fakeRunner struct {
	fail   map[string]bool
	labels []string
	hook   func()
}

func (r *fakeRunner) Run(_ context.Context, cred *model.Credential) model.Outcome {
	r.labels = append(r.labels, cred.Label)
	if r.hook != nil {
		r.hook()
	}
	if r.fail[cred.Label] {
		return model.Outcome{Kind: model.OutcomeExhausted, Attempts: []model.Attempt{{Err: "dial failed"}}}
	}
	return model.Outcome{Kind: model.OutcomeSuccess, Counts: model.Counts{Claimed: 2, Failed: 1}, Attempts: []model.Attempt{{}}}
}

type fakeHistory struct {
	saved []*model.CycleSummary
	err   error
}

func (h *fakeHistory) SaveCycle(_ context.Context, s *model.CycleSummary) error {
	h.saved = append(h.saved, s)
	return h.err
}

// recordingSleep records requested waits.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func creds(n int) []*model.Credential {
	out := make([]*model.Credential, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &model.Credential{Secret: fmt.Sprintf("tok%d", i), Label: fmt.Sprintf("Token_%d", i)})
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// TestRunCycle tests one pass over every credential.
func TestRunCycle(t *testing.T) {
	t.Parallel()

	spec, err := proxy.Parse("10.0.0.1:8080")
	if err != nil {
		t.Fatal(err)
	}
	source := &fakeCredentials{creds: creds(3)}
	runner := &fakeRunner{fail: map[string]bool{"Token_2": true}}
	registry := rotation.NewRegistry()
	sleeper := &recordingSleep{}
	var out bytes.Buffer

	d := NewDriver(source, &fakeProxies{specs: []*proxy.Spec{spec}}, registry, runner,
		WithOutput(&out),
		WithSleep(sleeper.sleep),
		WithLogger(discardLogger()),
	)

	summary, err := d.RunCycle(context.Background(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(runner.labels, ",") != "Token_1,Token_2,Token_3" {
		t.Errorf("unexpected processing order %v", runner.labels)
	}
	if summary.Number != 4 || summary.Store != "token.txt" || summary.Proxies != 1 {
		t.Errorf("unexpected summary header %+v", summary)
	}
	if summary.ID == "" {
		t.Error("expected a cycle ID")
	}
	if summary.Totals != (model.Counts{Claimed: 4, Failed: 2}) {
		t.Errorf("unexpected totals %+v", summary.Totals)
	}
	if summary.Exhausted() != 1 {
		t.Errorf("expected 1 exhausted credential, got %d", summary.Exhausted())
	}
	if summary.FinishedAt.IsZero() {
		t.Error("expected finish time")
	}
	if registry.ProxyCount() != 1 || len(registry.Credentials()) != 3 {
		t.Error("expected the registry to be reloaded")
	}

	// No delay after the last credential.
	if len(sleeper.waits) != 2 {
		t.Fatalf("expected 2 waits, got %v", sleeper.waits)
	}
	for _, w := range sleeper.waits {
		if w != DefaultCredentialDelay {
			t.Errorf("expected %v, got %v", DefaultCredentialDelay, w)
		}
	}

	output := out.String()
	for _, s := range []string{
		"Starting cycle #4 with 3 credentials and 1 proxies",
		"Processing Token_2 (2/3)",
		"All attempts failed for Token_2",
	} {
		if !strings.Contains(output, s) {
			t.Errorf("expected output to contain %q, got:\n%s", s, output)
		}
	}
}

// TestRunCycleIDsAreUnique tests that every cycle gets its own ID.
func TestRunCycleIDsAreUnique(t *testing.T) {
	t.Parallel()

	d := NewDriver(&fakeCredentials{creds: creds(1)}, &fakeProxies{}, rotation.NewRegistry(), &fakeRunner{},
		WithSleep(clock.NoSleep),
		WithLogger(discardLogger()),
	)

	a, err := d.RunCycle(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.RunCycle(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Errorf("expected distinct IDs, got %s twice", a.ID)
	}
}

// TestRunForeverStopsWithoutCredentials tests that an empty store ends the run mode.
func TestRunForeverStopsWithoutCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source *fakeCredentials
	}{
		{"load error", &fakeCredentials{errs: []error{fmt.Errorf("token.txt: %w", store.ErrNoCredentials)}}},
		{"empty list", &fakeCredentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{}
			d := NewDriver(tt.source, &fakeProxies{}, rotation.NewRegistry(), runner,
				WithSleep(clock.NoSleep),
				WithLogger(discardLogger()),
			)

			err := d.RunForever(context.Background())
			if !errors.Is(err, store.ErrNoCredentials) {
				t.Fatalf("expected ErrNoCredentials, got %v", err)
			}
			if len(runner.labels) != 0 {
				t.Error("expected no credentials processed")
			}
		})
	}
}

// TestRunForeverCycles tests summaries, history and the inter-cycle delay.
func TestRunForeverCycles(t *testing.T) {
	t.Parallel()

	history := &fakeHistory{err: errors.New("database is locked")}
	sleeper := &recordingSleep{}
	var out bytes.Buffer
	d := NewDriver(&fakeCredentials{creds: creds(2)}, &fakeProxies{}, rotation.NewRegistry(), &fakeRunner{},
		WithOutput(&out),
		WithHistory(history),
		WithSleep(sleeper.sleep),
		WithDelays(time.Second, time.Minute, time.Hour),
		WithMaxCycles(2),
		WithLogger(discardLogger()),
	)

	if err := d.RunForever(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(history.saved) != 2 {
		t.Fatalf("expected 2 recorded cycles despite save errors, got %d", len(history.saved))
	}
	if history.saved[0].Number != 1 || history.saved[1].Number != 2 {
		t.Error("expected cycle numbers 1 and 2")
	}

	want := []time.Duration{time.Second, time.Minute, time.Second}
	if fmt.Sprint(sleeper.waits) != fmt.Sprint(want) {
		t.Errorf("expected waits %v, got %v", want, sleeper.waits)
	}

	output := out.String()
	if !strings.Contains(output, "CYCLE #1 TOTAL SUMMARY:") || !strings.Contains(output, "CYCLE #2 TOTAL SUMMARY:") {
		t.Errorf("expected both cycle summaries, got:\n%s", output)
	}
	if !strings.Contains(output, "Total successfully claimed: 4") {
		t.Errorf("expected totals in summary, got:\n%s", output)
	}
}

// TestRunForeverErrorPause tests that a failed cycle pauses and the loop continues.
func TestRunForeverErrorPause(t *testing.T) {
	t.Parallel()

	source := &fakeCredentials{creds: creds(1), errs: []error{errors.New("permission denied")}}
	sleeper := &recordingSleep{}
	var out bytes.Buffer
	d := NewDriver(source, &fakeProxies{}, rotation.NewRegistry(), &fakeRunner{},
		WithOutput(&out),
		WithSleep(sleeper.sleep),
		WithDelays(time.Second, time.Minute, time.Hour),
		WithMaxCycles(2),
		WithLogger(discardLogger()),
	)

	if err := d.RunForever(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.loads != 2 {
		t.Errorf("expected 2 loads, got %d", source.loads)
	}
	if len(sleeper.waits) == 0 || sleeper.waits[0] != time.Hour {
		t.Errorf("expected the error pause first, got %v", sleeper.waits)
	}
	if !strings.Contains(out.String(), "Error in cycle #1: permission denied") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

// TestRunForeverProxyLoadError tests that a broken proxy store fails the cycle.
func TestRunForeverProxyLoadError(t *testing.T) {
	t.Parallel()

	d := NewDriver(&fakeCredentials{creds: creds(1)}, &fakeProxies{err: errors.New("is a directory")}, rotation.NewRegistry(), &fakeRunner{},
		WithSleep(clock.NoSleep),
		WithLogger(discardLogger()),
	)

	_, err := d.RunCycle(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "failed to load proxies") {
		t.Errorf("expected proxy load error, got %v", err)
	}
}

// TestRunForeverCancellation tests that cancelling mid-cycle returns the context error.
func TestRunForeverCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &fakeRunner{hook: cancel}
	history := &fakeHistory{}
	d := NewDriver(&fakeCredentials{creds: creds(3)}, &fakeProxies{}, rotation.NewRegistry(), runner,
		WithHistory(history),
		WithSleep(clock.NoSleep),
		WithLogger(discardLogger()),
	)

	err := d.RunForever(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(runner.labels) != 1 {
		t.Errorf("expected 1 credential processed, got %v", runner.labels)
	}
	if len(history.saved) != 0 {
		t.Error("an interrupted cycle must not be recorded")
	}
}
