// Package orchestrator turns a provider and run options into a health report.
//
// Run never returns an error: check failures, malformed results and timeouts
// become failing results, and a failure of the run itself becomes a report
// whose Error field is set.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

// Options select and tune the checks of one run.
//
// A non-nil Checks (even empty) wins over Categories; a non-nil Categories
// wins over "every enabled check".
type Options struct {
	Checks              []string
	Categories          []string
	ContinueOnError     *bool
	Timeout             time.Duration
	Parallel            bool
	MaxConcurrency      int
	RespectDependencies bool
	CheckOptions        ports.CheckOptions
}

// Bool is a helper for Options.ContinueOnError literals.
func Bool(b bool) *bool {
	return &b
}

func (o Options) withDefaults() Options {
	if o.ContinueOnError == nil {
		o.ContinueOnError = Bool(true)
	}
	if o.Timeout <= 0 {
		o.Timeout = domain.DefaultCheckTimeout
	}
	if o.CheckOptions == nil {
		o.CheckOptions = ports.CheckOptions{}
	}
	if o.MaxConcurrency < 0 {
		o.MaxConcurrency = 0
	}
	return o
}

// Service runs registered checks against a provider.
type Service struct {
	Registry *registry.Registry
	Logger   ports.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run executes the selected checks and always returns a report.
func (s *Service) Run(ctx context.Context, provider ports.Provider, opts Options) (report domain.Report) {
	start := s.now()
	collected := &collector{}

	defer func() {
		if rec := recover(); rec != nil {
			report = s.assemble(start, provider, collected.snapshot(), errors.Newf("orchestration panic: %v", rec))
		}
	}()

	if s.Registry == nil {
		return s.assemble(start, provider, nil, errors.New("no check registry configured"))
	}
	if provider == nil {
		return s.assemble(start, provider, nil, errors.New("no provider given"))
	}
	if err := s.Registry.AutoDiscover(ctx); err != nil {
		s.warn("some checks could not be loaded", map[string]interface{}{"error": err.Error()})
	}

	opts = opts.withDefaults()
	selected := s.resolve(opts)
	if len(selected) == 0 {
		s.debug("no checks selected", nil)
		return s.assemble(start, provider, nil, nil)
	}

	order, err := s.order(selected, opts)
	if err != nil {
		return s.assemble(start, provider, nil, err)
	}

	s.debug("running checks", map[string]interface{}{
		"checks":   order,
		"parallel": opts.Parallel,
		"timeout":  opts.Timeout.String(),
	})

	if opts.Parallel {
		if err := s.runParallel(ctx, provider, order, opts, collected); err != nil {
			return s.assemble(start, provider, collected.snapshot(), err)
		}
	} else {
		s.runSequential(ctx, provider, order, opts, collected)
	}
	return s.assemble(start, provider, collected.snapshot(), nil)
}

// resolve picks the ids to run, before ordering.
func (s *Service) resolve(opts Options) []string {
	switch {
	case opts.Checks != nil:
		known := lo.Filter(opts.Checks, func(id string, _ int) bool {
			if s.Registry.Has(id) {
				return true
			}
			s.warn("requested check is not registered", map[string]interface{}{"id": id})
			return false
		})
		return lo.Uniq(known)
	case opts.Categories != nil:
		var ids []string
		for _, category := range lo.Uniq(opts.Categories) {
			for _, meta := range s.Registry.ByCategory(category) {
				ids = append(ids, meta.ID)
			}
		}
		return lo.Uniq(ids)
	default:
		return s.Registry.ExecutionOrder()
	}
}

func (s *Service) order(ids []string, opts Options) ([]string, error) {
	if opts.RespectDependencies {
		return s.Registry.DependencyOrder(ids...)
	}
	return s.Registry.ExecutionOrder(ids...), nil
}

func (s *Service) runSequential(ctx context.Context, provider ports.Provider, order []string, opts Options, out *collector) {
	var failures []string
	for _, id := range order {
		if !*opts.ContinueOnError && len(failures) > 0 {
			s.debug("stopping after failure", map[string]interface{}{"failed": failures, "remaining_from": id})
			return
		}
		res := s.runOne(ctx, provider, id, opts)
		out.add(res)
		if res.Status == domain.StatusFail {
			failures = append(failures, id)
		}
	}
}

// runParallel dispatches every check at once (bounded by MaxConcurrency).
// Results land at their launch index so report order equals launch order.
// A panic on a worker goroutine is returned as an error; the checks that
// finished are still collected.
func (s *Service) runParallel(ctx context.Context, provider ports.Provider, order []string, opts Options, out *collector) error {
	results := make([]domain.CheckResult, len(order))
	finished := make([]bool, len(order))
	var g errgroup.Group
	if opts.MaxConcurrency > 0 {
		g.SetLimit(opts.MaxConcurrency)
	}
	for i, id := range order {
		i, id := i, id
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = errors.Newf("orchestration panic: %v", rec)
				}
			}()
			results[i] = s.runOne(ctx, provider, id, opts)
			finished[i] = true
			return nil
		})
	}
	err := g.Wait()
	for i, res := range results {
		if finished[i] {
			out.add(res)
		}
	}
	return err
}

type outcome struct {
	res domain.CheckResult
	err error
}

// runOne executes a single check under its timeout. The check receives a
// context that is cancelled at the deadline; a check that ignores it keeps
// running in the background and its late result is dropped.
func (s *Service) runOne(ctx context.Context, provider ports.Provider, id string, opts Options) domain.CheckResult {
	started := s.now()
	checkCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := s.Registry.Execute(checkCtx, id, provider, opts.CheckOptions)
		done <- outcome{res: res, err: err}
	}()

	var res domain.CheckResult
	select {
	case o := <-done:
		switch {
		case o.err == nil:
			res = o.res
		case errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil:
			res = timeoutResult(id, opts.Timeout)
		default:
			res = domain.NewErrorResult(id, o.err, map[string]any{"checkId": id})
		}
	case <-checkCtx.Done():
		if err := ctx.Err(); err != nil {
			res = domain.NewErrorResult(id, errors.Wrap(err, "run cancelled"), map[string]any{"checkId": id})
		} else {
			res = timeoutResult(id, opts.Timeout)
		}
	}

	s.debug("check finished", map[string]interface{}{
		"id":          id,
		"status":      string(res.Status),
		"duration_ms": s.now().Sub(started).Milliseconds(),
	})
	return res
}

func timeoutResult(id string, timeout time.Duration) domain.CheckResult {
	err := errors.Mark(
		errors.Newf("Health check '%s' timed out after %dms", id, timeout.Milliseconds()),
		domain.ErrCheckTimeout,
	)
	return domain.NewErrorResult(id, err, map[string]any{
		"checkId":   id,
		"timeoutMs": timeout.Milliseconds(),
	})
}

func (s *Service) assemble(start time.Time, provider ports.Provider, results []domain.CheckResult, runErr error) domain.Report {
	now := s.now()
	if results == nil {
		results = []domain.CheckResult{}
	}
	report := domain.Report{
		RunID:   uuid.NewString(),
		Results: results,
		Summary: domain.ReportSummary{
			Summary:         domain.CalculateSummary(results),
			ExecutionTimeMS: now.Sub(start).Milliseconds(),
			ExecutionDate:   now,
		},
		Timestamp: now,
		Provider:  providerInfo(provider),
	}
	if runErr != nil {
		report.Error = &domain.ReportError{
			Message: runErr.Error(),
			Type:    domain.ReportErrorOrchestration,
		}
		if s.Logger != nil {
			s.Logger.Error("health check run failed", runErr, map[string]interface{}{"collected": len(results)})
		}
	}
	return report
}

func providerInfo(p ports.Provider) domain.ProviderInfo {
	if p == nil {
		return domain.ProviderInfo{Type: "unknown"}
	}
	return domain.ProviderInfo{Type: p.Type(), RepoPath: p.RepoPath()}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) debug(msg string, fields map[string]interface{}) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields)
	}
}

func (s *Service) warn(msg string, fields map[string]interface{}) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields)
	}
}

// collector keeps results gathered so far so a panicking run can still
// report them.
type collector struct {
	mu      sync.Mutex
	results []domain.CheckResult
}

func (c *collector) add(res domain.CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

func (c *collector) snapshot() []domain.CheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CheckResult(nil), c.results...)
}

