package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/claimbot/internal/api"
	"github.com/nao1215/claimbot/internal/clock"
	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/proxy"
	"github.com/nao1215/claimbot/internal/rotation"
)

// scriptedExecutor fails for the listed proxies and succeeds otherwise.
type scriptedExecutor struct {
	mu        sync.Mutex
	failProxy map[string]bool
	failAll   bool
	counts    model.Counts
	calls     []string
	onExecute func()
}

func (e *scriptedExecutor) Execute(_ context.Context, _ *model.Credential, p *proxy.Spec) (model.Counts, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := "direct"
	if p != nil {
		name = p.Original
	}
	e.calls = append(e.calls, name)
	if e.onExecute != nil {
		e.onExecute()
	}
	if e.failAll || (p != nil && e.failProxy[p.Original]) {
		return model.Counts{Claimed: 99}, &api.TransportError{Op: "list tasks", Proxy: name, Err: errors.New("dial failed")}
	}
	return e.counts, nil
}

// lineRecorder collects rejected proxy lines.
type lineRecorder struct {
	lines []string
}

func (r *lineRecorder) Reject(line string) {
	r.lines = append(r.lines, line)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func poolOf(t *testing.T, lines ...string) *rotation.Registry {
	t.Helper()

	specs := make([]*proxy.Spec, 0, len(lines))
	for _, l := range lines {
		s, err := proxy.Parse(l)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", l, err)
		}
		specs = append(specs, s)
	}
	r := rotation.NewRegistry()
	r.Reload(nil, specs)
	return r
}

func testCredential() *model.Credential {
	return &model.Credential{Secret: "tok", Label: "Token_1"}
}

// TestCoordinatorRun tests the attempt sequence across proxies and the direct fallback.
func TestCoordinatorRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		pool         []string
		failProxy    map[string]bool
		failAll      bool
		wantKind     model.OutcomeKind
		wantCalls    []string
		wantRejected []string
	}{
		{
			name:         "two failing proxies then direct success",
			pool:         []string{"10.0.0.1:8080", "10.0.0.2:8080"},
			failProxy:    map[string]bool{"10.0.0.1:8080": true, "10.0.0.2:8080": true},
			wantKind:     model.OutcomeSuccess,
			wantCalls:    []string{"10.0.0.1:8080", "10.0.0.2:8080", "direct"},
			wantRejected: []string{"10.0.0.1:8080", "10.0.0.2:8080"},
		},
		{
			name:      "empty pool makes one direct attempt",
			wantKind:  model.OutcomeSuccess,
			wantCalls: []string{"direct"},
		},
		{
			name:         "every transport fails",
			pool:         []string{"10.0.0.1:8080", "10.0.0.2:8080", "10.0.0.3:8080"},
			failAll:      true,
			wantKind:     model.OutcomeExhausted,
			wantCalls:    []string{"10.0.0.1:8080", "10.0.0.2:8080", "10.0.0.3:8080", "direct"},
			wantRejected: []string{"10.0.0.1:8080", "10.0.0.2:8080", "10.0.0.3:8080"},
		},
		{
			name:      "empty pool and direct failure",
			failAll:   true,
			wantKind:  model.OutcomeExhausted,
			wantCalls: []string{"direct"},
		},
		{
			name:         "second proxy succeeds",
			pool:         []string{"10.0.0.1:8080", "user:pass@10.0.0.2:8080", "10.0.0.3:8080"},
			failProxy:    map[string]bool{"10.0.0.1:8080": true},
			wantKind:     model.OutcomeSuccess,
			wantCalls:    []string{"10.0.0.1:8080", "user:pass@10.0.0.2:8080"},
			wantRejected: []string{"10.0.0.1:8080"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := &scriptedExecutor{
				failProxy: tt.failProxy,
				failAll:   tt.failAll,
				counts:    model.Counts{Claimed: 3, AlreadyClaimed: 1},
			}
			rejected := &lineRecorder{}
			c := NewCoordinator(exec, poolOf(t, tt.pool...),
				WithRejector(rejected),
				WithSleep(clock.NoSleep),
				WithLogger(discardLogger()),
			)

			out := c.Run(context.Background(), testCredential())

			if out.Kind != tt.wantKind {
				t.Errorf("expected %v, got %v", tt.wantKind, out.Kind)
			}
			if len(out.Attempts) != len(tt.wantCalls) {
				t.Fatalf("expected %d attempts, got %d", len(tt.wantCalls), len(out.Attempts))
			}
			if strings.Join(exec.calls, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("expected calls %v, got %v", tt.wantCalls, exec.calls)
			}
			if strings.Join(rejected.lines, ",") != strings.Join(tt.wantRejected, ",") {
				t.Errorf("expected rejected %v, got %v", tt.wantRejected, rejected.lines)
			}

			if tt.wantKind == model.OutcomeExhausted {
				if out.Counts != (model.Counts{}) {
					t.Errorf("exhausted outcome must carry zero counts, got %+v", out.Counts)
				}
				if out.LastError() == "" {
					t.Error("expected the last error to be recorded")
				}
			} else if out.Counts.Claimed != 3 || out.Counts.AlreadyClaimed != 1 {
				t.Errorf("unexpected counts %+v", out.Counts)
			}
		})
	}
}

// TestCoordinatorBackoff tests that the wait happens between proxies but not before the direct attempt.
func TestCoordinatorBackoff(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	exec := &scriptedExecutor{failAll: true}
	c := NewCoordinator(exec, poolOf(t, "10.0.0.1:8080", "10.0.0.2:8080", "10.0.0.3:8080"),
		WithSleep(sleep),
		WithRetryBackoff(time.Second),
		WithLogger(discardLogger()),
	)

	c.Run(context.Background(), testCredential())

	if len(waits) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(waits))
	}
	for _, d := range waits {
		if d != time.Second {
			t.Errorf("expected 1s backoff, got %v", d)
		}
	}
}

// TestCoordinatorLogsErrorClass tests that request failures are tagged with their class.
func TestCoordinatorLogsErrorClass(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	exec := &scriptedExecutor{failProxy: map[string]bool{"10.0.0.1:8080": true}}
	c := NewCoordinator(exec, poolOf(t, "10.0.0.1:8080", "10.0.0.2:8080"),
		WithSleep(clock.NoSleep),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	c.Run(context.Background(), testCredential())

	out := buf.String()
	if !strings.Contains(out, "request failed") {
		t.Fatalf("expected a failure record, got %q", out)
	}
	if !strings.Contains(out, "class=transport") {
		t.Errorf("expected class=transport, got %q", out)
	}
}

func TestErrorClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport", &api.TransportError{Op: "list tasks", Err: errors.New("dial failed")}, "transport"},
		{"status", &api.StatusError{Op: "list tasks", StatusCode: 502}, "status"},
		{"application", &api.ApplicationError{Op: "claim task", Result: "error"}, "application"},
		{"wrapped status", fmt.Errorf("cycle: %w", &api.StatusError{StatusCode: 401}), "status"},
		{"other", errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := errorClass(tt.err); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

// TestCoordinatorRotatesAcrossCredentials tests that each credential continues the shared proxy rotation.
func TestCoordinatorRotatesAcrossCredentials(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{}
	c := NewCoordinator(exec, poolOf(t, "10.0.0.1:8080", "10.0.0.2:8080"),
		WithSleep(clock.NoSleep),
		WithLogger(discardLogger()),
	)

	for range 3 {
		c.Run(context.Background(), testCredential())
	}

	want := "10.0.0.1:8080,10.0.0.2:8080,10.0.0.1:8080"
	if got := strings.Join(exec.calls, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// TestCoordinatorCancellation tests that a cancelled context ends the run as exhausted.
func TestCoordinatorCancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before start", func(t *testing.T) {
		t.Parallel()

		exec := &scriptedExecutor{}
		c := NewCoordinator(exec, poolOf(t, "10.0.0.1:8080"), WithLogger(discardLogger()))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := c.Run(ctx, testCredential())
		if out.Kind != model.OutcomeExhausted {
			t.Errorf("expected exhausted, got %v", out.Kind)
		}
		if len(exec.calls) != 0 {
			t.Errorf("expected no attempts, got %v", exec.calls)
		}
	})

	t.Run("cancelled during an attempt", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		exec := &scriptedExecutor{failAll: true, onExecute: cancel}
		rejected := &lineRecorder{}
		c := NewCoordinator(exec, poolOf(t, "10.0.0.1:8080", "10.0.0.2:8080"),
			WithRejector(rejected),
			WithLogger(discardLogger()),
		)

		out := c.Run(ctx, testCredential())
		if out.Kind != model.OutcomeExhausted {
			t.Errorf("expected exhausted, got %v", out.Kind)
		}
		if len(exec.calls) != 1 {
			t.Errorf("expected 1 attempt, got %v", exec.calls)
		}
		if len(rejected.lines) != 0 {
			t.Error("a cancelled attempt must not reject the proxy")
		}
	})

	t.Run("cancelled during backoff", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		sleep := func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}
		exec := &scriptedExecutor{failAll: true}
		c := NewCoordinator(exec, poolOf(t, "10.0.0.1:8080", "10.0.0.2:8080"),
			WithSleep(sleep),
			WithLogger(discardLogger()),
		)

		out := c.Run(ctx, testCredential())
		if out.Kind != model.OutcomeExhausted || len(out.Attempts) != 1 {
			t.Errorf("expected exhausted after 1 attempt, got %v with %d attempts", out.Kind, len(out.Attempts))
		}
	})
}

// shrinkingPool reports a size but runs dry after the first proxy.
type shrinkingPool struct {
	spec  *proxy.Spec
	given bool
}

func (p *shrinkingPool) NextProxy() *proxy.Spec {
	if p.given {
		return nil
	}
	p.given = true
	return p.spec
}

func (p *shrinkingPool) ProxyCount() int {
	return 3
}

// TestCoordinatorPoolEmptied tests the collapse to a single direct attempt.
func TestCoordinatorPoolEmptied(t *testing.T) {
	t.Parallel()

	spec, err := proxy.Parse("10.0.0.1:8080")
	if err != nil {
		t.Fatal(err)
	}
	exec := &scriptedExecutor{failAll: true}
	c := NewCoordinator(exec, &shrinkingPool{spec: spec},
		WithSleep(clock.NoSleep),
		WithLogger(discardLogger()),
	)

	out := c.Run(context.Background(), testCredential())

	want := "10.0.0.1:8080,direct"
	if got := strings.Join(exec.calls, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if out.Kind != model.OutcomeExhausted {
		t.Errorf("expected exhausted, got %v", out.Kind)
	}
}

// fakeService serves the task API for TaskUnit tests.
type fakeService struct {
	mu      sync.Mutex
	failAll bool
	claims  []string
	wallets []string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/task/get-user-task", func(w http.ResponseWriter, _ *http.Request) {
		if f.failAll {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"_id":"t1","name":"Follow","status":"idle","pointAmount":10},{"_id":"t2","name":"Join","status":"claimed","pointAmount":5}]}`))
	})
	mux.HandleFunc("/api/task/claim-task", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TaskID string `json:"taskId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.claims = append(f.claims, body.TaskID)
		f.mu.Unlock()
		if body.TaskID == "t2" {
			_, _ = w.Write([]byte(`{"result":"error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"success"}`))
	})
	mux.HandleFunc("/api/user/get-point-stats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"totalPointEarned":42}}`))
	})
	mux.HandleFunc("/api/user/update-wallet-address", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WalletAddress string `json:"walletAddress"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.wallets = append(f.wallets, body.WalletAddress)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"result":"success"}`))
	})
	return mux
}

// walletRecorder records persisted wallet addresses.
type walletRecorder struct {
	addresses []string
}

func (r *walletRecorder) RecordWallet(_ *model.Credential, address string) error {
	r.addresses = append(r.addresses, address)
	return nil
}

func unitOptions(url string) api.Options {
	opts := api.DefaultOptions()
	opts.BaseURL = url
	opts.Logger = discardLogger()
	return opts
}

// TestTaskUnitExecute tests the full pipeline against a fake service.
func TestTaskUnitExecute(t *testing.T) {
	t.Parallel()

	t.Run("plain credential", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		var out bytes.Buffer
		unit := NewTaskUnit(unitOptions(server.URL),
			WithOutput(&out),
			WithUnitSleep(clock.NoSleep),
			WithUnitLogger(discardLogger()),
		)

		counts, err := unit.Execute(context.Background(), testCredential(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if counts != (model.Counts{Claimed: 1, AlreadyClaimed: 1}) {
			t.Errorf("unexpected counts %+v", counts)
		}
		if len(svc.wallets) != 0 {
			t.Error("plain credentials must not link wallets")
		}
		if !strings.Contains(out.String(), "BALANCE INFORMATION (Token_1)") {
			t.Errorf("expected balance block, got:\n%s", out.String())
		}
	})

	t.Run("account credential links a wallet", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		recorder := &walletRecorder{}
		unit := NewTaskUnit(unitOptions(server.URL),
			WithUnitSleep(clock.NoSleep),
			WithUnitLogger(discardLogger()),
			WithWalletRecorder(recorder),
		)
		cred := &model.Credential{Secret: "tok", Label: "a@b.com", Email: "a@b.com", Password: "x"}

		if _, err := unit.Execute(context.Background(), cred, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(svc.wallets) != 1 || len(recorder.addresses) != 1 || svc.wallets[0] != recorder.addresses[0] {
			t.Errorf("expected one linked and persisted wallet, got %v / %v", svc.wallets, recorder.addresses)
		}
		if cred.WalletAddress != svc.wallets[0] {
			t.Error("expected the credential to carry the new wallet")
		}
	})

	t.Run("list failure is a request-level error", func(t *testing.T) {
		t.Parallel()

		svc := &fakeService{failAll: true}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		unit := NewTaskUnit(unitOptions(server.URL), WithUnitSleep(clock.NoSleep), WithUnitLogger(discardLogger()))

		counts, err := unit.Execute(context.Background(), testCredential(), nil)
		if !api.IsStatus(err) {
			t.Fatalf("expected status error, got %v", err)
		}
		if counts != (model.Counts{}) {
			t.Errorf("expected zero counts, got %+v", counts)
		}
	})

	t.Run("client factory receives the transport", func(t *testing.T) {
		t.Parallel()

		spec, err := proxy.Parse("10.0.0.9:3128")
		if err != nil {
			t.Fatal(err)
		}
		var gotSecret string
		var gotProxy *proxy.Spec
		factory := func(secret string, p *proxy.Spec) Client {
			gotSecret, gotProxy = secret, p
			svc := &fakeService{}
			server := httptest.NewServer(svc.handler())
			t.Cleanup(server.Close)
			return api.New(unitOptions(server.URL), secret, nil)
		}
		unit := NewTaskUnit(api.Options{}, WithClientFactory(factory), WithUnitSleep(clock.NoSleep), WithUnitLogger(discardLogger()))

		if _, err := unit.Execute(context.Background(), testCredential(), spec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotSecret != "tok" || gotProxy != spec {
			t.Errorf("factory got %q / %v", gotSecret, gotProxy)
		}
	})
}

// TestCoordinatorWithTaskUnit tests a dead proxy followed by a direct success end to end.
func TestCoordinatorWithTaskUnit(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	// Nothing listens on port 1, so the proxied attempt fails to connect.
	pool := poolOf(t, "127.0.0.1:1")
	rejected := &lineRecorder{}
	unit := NewTaskUnit(unitOptions(server.URL), WithUnitSleep(clock.NoSleep), WithUnitLogger(discardLogger()))
	c := NewCoordinator(unit, pool,
		WithRejector(rejected),
		WithSleep(clock.NoSleep),
		WithLogger(discardLogger()),
	)

	out := c.Run(context.Background(), testCredential())

	if out.Kind != model.OutcomeSuccess {
		t.Fatalf("expected success, got %v (%s)", out.Kind, out.LastError())
	}
	if len(out.Attempts) != 2 || out.Attempts[0].Proxy != "127.0.0.1:1" || !out.Attempts[1].Direct() {
		t.Errorf("unexpected attempts %+v", out.Attempts)
	}
	if len(rejected.lines) != 1 || rejected.lines[0] != "127.0.0.1:1" {
		t.Errorf("expected the dead proxy to be rejected, got %v", rejected.lines)
	}
	if out.Counts.Claimed != 1 {
		t.Errorf("expected 1 claim, got %+v", out.Counts)
	}
}
