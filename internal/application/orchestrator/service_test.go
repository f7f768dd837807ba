package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/infrastructure/provider"
	"github.com/doeshing/spechealth/internal/pkg/logger"
	"github.com/doeshing/spechealth/internal/ports"
)

// countingProvider records every provider call.
type countingProvider struct {
	ports.Provider
	calls atomic.Int32
}

func newCountingProvider() *countingProvider {
	return &countingProvider{Provider: provider.NewMemory(map[string]string{"package.json": "{}"})}
}

func (p *countingProvider) ReadFile(ctx context.Context, path string) (string, error) {
	p.calls.Add(1)
	return p.Provider.ReadFile(ctx, path)
}

func (p *countingProvider) FileExists(ctx context.Context, path string) (bool, error) {
	p.calls.Add(1)
	return p.Provider.FileExists(ctx, path)
}

func checkReturning(status domain.CheckStatus, invoked *atomic.Bool) ports.CheckFunc {
	return func(ctx context.Context, p ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
		if invoked != nil {
			invoked.Store(true)
		}
		if _, err := p.FileExists(ctx, "package.json"); err != nil {
			return domain.CheckResult{}, err
		}
		return domain.NewResult("stub", status, "stub result", nil)
	}
}

func register(t *testing.T, r *registry.Registry, id string, priority int, category string, fn ports.CheckFunc, deps ...string) {
	t.Helper()
	require.NoError(t, r.Register(registry.Registration{
		ID:           id,
		Name:         id,
		Description:  "test check " + id,
		Check:        fn,
		Category:     category,
		Priority:     registry.Priority(priority),
		Dependencies: deps,
	}))
}

func newService(t *testing.T) (*Service, *registry.Registry) {
	log := logger.FromZap(zaptest.NewLogger(t))
	r := registry.New(log)
	return &Service{Registry: r, Logger: log}, r
}

func statuses(report domain.Report) []domain.CheckStatus {
	out := make([]domain.CheckStatus, len(report.Results))
	for i, res := range report.Results {
		out[i] = res.Status
	}
	return out
}

func TestRunContainsThrowingCheck(t *testing.T) {
	svc, r := newService(t)
	register(t, r, "passes", 10, "", checkReturning(domain.StatusPass, nil))
	register(t, r, "throws", 20, "", func(context.Context, ports.Provider, ports.CheckOptions) (domain.CheckResult, error) {
		return domain.CheckResult{}, errors.New("unexpected EOF")
	})

	p := newCountingProvider()
	report := svc.Run(context.Background(), p, Options{})

	require.Nil(t, report.Error)
	require.Len(t, report.Results, 2)
	assert.Equal(t, []domain.CheckStatus{domain.StatusPass, domain.StatusFail}, statuses(report))
	assert.Equal(t, "throws", report.Results[1].Check)
	assert.Contains(t, report.Results[1].Message, domain.ErrorResultPrefix)
	assert.Contains(t, report.Results[1].Message, "unexpected EOF")
	assert.True(t, report.Summary.HasErrors)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 50, report.Summary.Score)
	assert.Equal(t, provider.KindMemory, report.Provider.Type)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Timestamp.IsZero())
	assert.False(t, report.Summary.ExecutionDate.IsZero())
}

func TestRunTimesOutHungCheck(t *testing.T) {
	svc, r := newService(t)
	release := make(chan struct{})
	defer close(release)
	register(t, r, "hangs", 10, "", func(context.Context, ports.Provider, ports.CheckOptions) (domain.CheckResult, error) {
		<-release
		return domain.NewResult("hangs", domain.StatusPass, "too late", nil)
	})

	start := time.Now()
	report := svc.Run(context.Background(), newCountingProvider(), Options{Timeout: 50 * time.Millisecond})
	elapsed := time.Since(start)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, domain.StatusFail, res.Status)
	assert.Contains(t, res.Message, "Health check 'hangs' timed out after 50ms")
	assert.EqualValues(t, 50, res.Details["timeoutMs"])
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRunTimesOutCooperativeCheck(t *testing.T) {
	svc, r := newService(t)
	register(t, r, "waits", 10, "", func(ctx context.Context, _ ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
		<-ctx.Done()
		return domain.CheckResult{}, ctx.Err()
	})

	report := svc.Run(context.Background(), newCountingProvider(), Options{Timeout: 20 * time.Millisecond})
	require.Len(t, report.Results, 1)
	assert.Contains(t, report.Results[0].Message, "timed out after 20ms")
}

func TestRunStopsAfterFailureWhenAsked(t *testing.T) {
	svc, r := newService(t)
	var cInvoked atomic.Bool
	register(t, r, "A", 1, "", checkReturning(domain.StatusPass, nil))
	register(t, r, "B", 2, "", checkReturning(domain.StatusFail, nil))
	register(t, r, "C", 3, "", checkReturning(domain.StatusPass, &cInvoked))

	report := svc.Run(context.Background(), newCountingProvider(), Options{ContinueOnError: Bool(false)})

	require.Len(t, report.Results, 2)
	assert.Equal(t, []domain.CheckStatus{domain.StatusPass, domain.StatusFail}, statuses(report))
	assert.False(t, cInvoked.Load(), "C must never run")
	assert.True(t, report.Summary.HasErrors)
}

func TestRunContinuesAfterFailureByDefault(t *testing.T) {
	svc, r := newService(t)
	var cInvoked atomic.Bool
	register(t, r, "A", 1, "", checkReturning(domain.StatusFail, nil))
	register(t, r, "B", 2, "", checkReturning(domain.StatusPass, &cInvoked))

	report := svc.Run(context.Background(), newCountingProvider(), Options{})
	assert.Len(t, report.Results, 2)
	assert.True(t, cInvoked.Load())
}

func TestRunParallelKeepsLaunchOrder(t *testing.T) {
	svc, r := newService(t)
	register(t, r, "slow", 1, "", func(ctx context.Context, p ports.Provider, o ports.CheckOptions) (domain.CheckResult, error) {
		time.Sleep(80 * time.Millisecond)
		return domain.NewResult("slow", domain.StatusPass, "slow but fine", nil)
	})
	register(t, r, "fast", 2, "", checkReturning(domain.StatusFail, nil))

	report := svc.Run(context.Background(), newCountingProvider(), Options{
		Parallel:        true,
		ContinueOnError: Bool(false),
	})

	require.Len(t, report.Results, 2)
	assert.Equal(t, "slow", report.Results[0].Check)
	assert.Equal(t, []domain.CheckStatus{domain.StatusPass, domain.StatusFail}, statuses(report))
	assert.True(t, report.Summary.HasErrors)
}

func TestRunParallelHonoursMaxConcurrency(t *testing.T) {
	svc, r := newService(t)
	var running, peak atomic.Int32
	var mu sync.Mutex
	track := func(ctx context.Context, _ ports.Provider, _ ports.CheckOptions) (domain.CheckResult, error) {
		n := running.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return domain.NewResult("tracked", domain.StatusPass, "ok", nil)
	}
	for i, id := range []string{"a", "b", "c", "d"} {
		register(t, r, id, i, "", track)
	}

	report := svc.Run(context.Background(), newCountingProvider(), Options{Parallel: true, MaxConcurrency: 2})
	assert.Len(t, report.Results, 4)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunEmptySelectionDoesNotTouchProvider(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "empty check list", opts: Options{Checks: []string{}}},
		{name: "unknown checks only", opts: Options{Checks: []string{"nope"}}},
		{name: "category without checks", opts: Options{Categories: []string{"nothing-here"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, r := newService(t)
			register(t, r, "a", 1, domain.CategoryConfiguration, checkReturning(domain.StatusPass, nil))

			p := newCountingProvider()
			report := svc.Run(context.Background(), p, tt.opts)

			assert.Nil(t, report.Error)
			assert.Equal(t, 0, report.Summary.Total)
			assert.Equal(t, 0, report.Summary.Score)
			assert.False(t, report.Summary.HasErrors)
			assert.NotNil(t, report.Results)
			assert.Empty(t, report.Results)
			assert.Zero(t, p.calls.Load())
		})
	}
}

func TestRunSelection(t *testing.T) {
	svc, r := newService(t)
	register(t, r, "cfg-b", 20, domain.CategoryConfiguration, checkReturning(domain.StatusPass, nil))
	register(t, r, "cfg-a", 10, domain.CategoryConfiguration, checkReturning(domain.StatusPass, nil))
	register(t, r, "content", 5, domain.CategoryContent, checkReturning(domain.StatusWarn, nil))
	register(t, r, "output", 1, domain.CategoryOutput, checkReturning(domain.StatusSkip, nil))
	r.SetEnabled("output", false)

	p := newCountingProvider()

	// explicit ids still run in registry order; unknown ids are dropped
	report := svc.Run(context.Background(), p, Options{Checks: []string{"cfg-b", "ghost", "content", "cfg-b"}})
	assert.Len(t, report.Results, 2)
	assert.Equal(t, []domain.CheckStatus{domain.StatusWarn, domain.StatusPass}, statuses(report))

	// categories are unioned; disabled checks stay out
	report = svc.Run(context.Background(), p, Options{Categories: []string{domain.CategoryConfiguration, domain.CategoryOutput, domain.CategoryConfiguration}})
	assert.Len(t, report.Results, 2)

	// everything enabled
	report = svc.Run(context.Background(), p, Options{})
	assert.Equal(t, []domain.CheckStatus{domain.StatusWarn, domain.StatusPass, domain.StatusPass}, statuses(report))
	assert.True(t, report.Summary.HasWarnings)
	assert.False(t, report.Summary.HasErrors)
}

func TestRunConvertsInvalidResult(t *testing.T) {
	svc, r := newService(t)
	register(t, r, "sloppy", 1, "", func(context.Context, ports.Provider, ports.CheckOptions) (domain.CheckResult, error) {
		return domain.CheckResult{Check: "sloppy", Message: "forgot the status", Timestamp: time.Now()}, nil
	})

	report := svc.Run(context.Background(), newCountingProvider(), Options{})
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.StatusFail, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Message, "invalid result")
}

func TestRunRespectsDependencies(t *testing.T) {
	svc, r := newService(t)
	var order []string
	var mu sync.Mutex
	recordAs := func(id string) ports.CheckFunc {
		return func(context.Context, ports.Provider, ports.CheckOptions) (domain.CheckResult, error) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return domain.NewResult(id, domain.StatusPass, "ok", nil)
		}
	}
	register(t, r, "base", 50, "", recordAs("base"))
	register(t, r, "derived", 10, "", recordAs("derived"), "base")

	svc.Run(context.Background(), newCountingProvider(), Options{})
	assert.Equal(t, []string{"derived", "base"}, order)

	order = nil
	svc.Run(context.Background(), newCountingProvider(), Options{RespectDependencies: true})
	assert.Equal(t, []string{"base", "derived"}, order)
}

func TestRunReportsDependencyCycleAsOrchestrationError(t *testing.T) {
	svc, r := newService(t)
	register(t, r, "x", 1, "", checkReturning(domain.StatusPass, nil), "y")
	register(t, r, "y", 2, "", checkReturning(domain.StatusPass, nil), "x")

	report := svc.Run(context.Background(), newCountingProvider(), Options{RespectDependencies: true})
	require.NotNil(t, report.Error)
	assert.Equal(t, domain.ReportErrorOrchestration, report.Error.Type)
	assert.Contains(t, report.Error.Message, "dependency cycle")
	assert.Empty(t, report.Results)
}

func TestRunWithoutProviderOrRegistry(t *testing.T) {
	svc, _ := newService(t)
	report := svc.Run(context.Background(), nil, Options{})
	require.NotNil(t, report.Error)
	assert.Equal(t, "unknown", report.Provider.Type)

	report = (&Service{}).Run(context.Background(), newCountingProvider(), Options{})
	require.NotNil(t, report.Error)
	assert.Equal(t, domain.ReportErrorOrchestration, report.Error.Type)
}

// panickingLogger blows up on the nth "check finished" line, simulating a bug
// in the orchestration itself.
type panickingLogger struct {
	finished atomic.Int32
	panicAt  int32
}

func (l *panickingLogger) Debug(msg string, _ map[string]interface{}) {
	if msg == "check finished" && l.finished.Add(1) == l.panicAt {
		panic("logger exploded")
	}
}

func (l *panickingLogger) Info(string, map[string]interface{})         {}
func (l *panickingLogger) Warn(string, map[string]interface{})         {}
func (l *panickingLogger) Error(string, error, map[string]interface{}) {}

func TestRunRecoversOrchestrationPanicWithPartialReport(t *testing.T) {
	log := &panickingLogger{panicAt: 2}
	r := registry.New(log)
	svc := &Service{Registry: r, Logger: log}
	register(t, r, "first", 1, "", checkReturning(domain.StatusPass, nil))
	register(t, r, "second", 2, "", checkReturning(domain.StatusPass, nil))
	register(t, r, "third", 3, "", checkReturning(domain.StatusPass, nil))

	var report domain.Report
	require.NotPanics(t, func() {
		report = svc.Run(context.Background(), newCountingProvider(), Options{})
	})
	require.NotNil(t, report.Error)
	assert.Equal(t, domain.ReportErrorOrchestration, report.Error.Type)
	assert.Contains(t, report.Error.Message, "logger exploded")
	assert.Len(t, report.Results, 1)
	assert.Equal(t, 1, report.Summary.Total)
}

func TestRunRecoversPanicOnParallelWorker(t *testing.T) {
	log := &panickingLogger{panicAt: 1}
	r := registry.New(log)
	svc := &Service{Registry: r, Logger: log}
	register(t, r, "first", 1, "", checkReturning(domain.StatusPass, nil))
	register(t, r, "second", 2, "", checkReturning(domain.StatusPass, nil))
	register(t, r, "third", 3, "", checkReturning(domain.StatusPass, nil))

	var report domain.Report
	require.NotPanics(t, func() {
		report = svc.Run(context.Background(), newCountingProvider(), Options{Parallel: true})
	})
	require.NotNil(t, report.Error)
	assert.Equal(t, domain.ReportErrorOrchestration, report.Error.Type)
	assert.Contains(t, report.Error.Message, "logger exploded")
	assert.Len(t, report.Results, 2, "the checks that finished are kept")
	assert.Equal(t, 2, report.Summary.Passed)
}

func TestRunDiscoversPluginsLazily(t *testing.T) {
	loads := 0
	plugin := registry.Plugin{Name: "builtin", Load: func() (registry.Registration, error) {
		loads++
		return registry.Registration{
			ID:          "builtin",
			Name:        "Builtin",
			Description: "discovered",
			Check:       checkReturning(domain.StatusPass, nil),
		}, nil
	}}
	broken := registry.Plugin{Name: "broken", Load: func() (registry.Registration, error) {
		return registry.Registration{}, errors.New("missing asset")
	}}
	r := registry.New(logger.NewNop(), plugin, broken)
	svc := &Service{Registry: r, Logger: logger.NewNop()}

	report := svc.Run(context.Background(), newCountingProvider(), Options{})
	require.Nil(t, report.Error)
	require.Len(t, report.Results, 1)

	svc.Run(context.Background(), newCountingProvider(), Options{})
	assert.Equal(t, 1, loads)
}

func TestRunMeasuresExecutionTime(t *testing.T) {
	svc, r := newService(t)
	register(t, r, "a", 1, "", checkReturning(domain.StatusPass, nil))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var ticks atomic.Int64
	svc.Now = func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * 100 * time.Millisecond)
	}

	report := svc.Run(context.Background(), newCountingProvider(), Options{})
	assert.Positive(t, report.Summary.ExecutionTimeMS)
	assert.True(t, report.Summary.ExecutionDate.After(base))
}
