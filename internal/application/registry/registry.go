// Package registry catalogs check plug-ins and decides the order they run in.
//
// A Registry is an ordinary value: the application builds one at startup,
// registers the built-in checks through AutoDiscover and hands it to the
// orchestrator. Tests construct fresh instances instead of sharing one.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/ports"
)

// DefaultCategories are present in every registry, even when empty.
var DefaultCategories = []string{
	domain.CategoryConfiguration,
	domain.CategoryContent,
	domain.CategoryExternal,
	domain.CategoryOutput,
	domain.CategoryGeneral,
}

// CheckMetadata describes a registered plug-in.
type CheckMetadata struct {
	ID           string
	Name         string
	Description  string
	Check        ports.CheckFunc
	Category     string
	Priority     int
	Dependencies []string
	Enabled      bool
}

// Registration is the input to Register. Nil Priority means DefaultPriority,
// empty Category means DefaultCategory.
type Registration struct {
	ID           string          `validate:"required"`
	Name         string          `validate:"required"`
	Description  string          `validate:"required"`
	Check        ports.CheckFunc `validate:"required"`
	Category     string
	Priority     *int     `validate:"omitempty,gte=0"`
	Dependencies []string `validate:"dive,required"`
	Disabled     bool
}

// Priority is a helper for building Registration literals.
func Priority(p int) *int {
	return &p
}

// Plugin is one built-in check known at compile time. Load may fail; discovery
// logs the failure and carries on with the remaining plugins.
type Plugin struct {
	Name string
	Load func() (Registration, error)
}

// Summary describes the registry contents.
type Summary struct {
	Total      int            `json:"total"`
	Enabled    int            `json:"enabled"`
	Disabled   int            `json:"disabled"`
	Categories map[string]int `json:"categories"`
	Discovered bool           `json:"discovered"`
}

// Registry is a concurrency-safe catalog of checks. Mutations are expected at
// startup; reads may happen from any number of goroutines.
type Registry struct {
	mu         sync.RWMutex
	checks     map[string]CheckMetadata
	categories map[string]map[string]struct{}
	discovered bool

	discoverMu sync.Mutex
	plugins    []Plugin

	logger   ports.Logger
	validate *validator.Validate
}

// New builds an empty registry that will discover the given plugins.
func New(logger ports.Logger, plugins ...Plugin) *Registry {
	r := &Registry{
		plugins:  plugins,
		logger:   logger,
		validate: validator.New(),
	}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.checks = make(map[string]CheckMetadata)
	r.categories = make(map[string]map[string]struct{}, len(DefaultCategories))
	for _, c := range DefaultCategories {
		r.categories[c] = make(map[string]struct{})
	}
	r.discovered = false
}

// Register validates and adds a check.
func (r *Registry) Register(reg Registration) error {
	meta, err := r.metadataFor(reg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.checks[meta.ID]; exists {
		return errors.Wrapf(domain.ErrDuplicateCheck, "check %q", meta.ID)
	}
	r.checks[meta.ID] = meta
	if _, ok := r.categories[meta.Category]; !ok {
		r.categories[meta.Category] = make(map[string]struct{})
	}
	r.categories[meta.Category][meta.ID] = struct{}{}
	r.debug("check registered", map[string]interface{}{
		"id":       meta.ID,
		"category": meta.Category,
		"priority": meta.Priority,
	})
	return nil
}

func (r *Registry) metadataFor(reg Registration) (CheckMetadata, error) {
	if err := r.validate.Struct(reg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return CheckMetadata{}, &domain.ValidationError{
				Field:  strings.ToLower(fe.Field()),
				Reason: fmt.Sprintf("failed %q constraint", fe.Tag()),
			}
		}
		return CheckMetadata{}, &domain.ValidationError{Field: "registration", Reason: err.Error()}
	}
	if strings.TrimSpace(reg.ID) == "" {
		return CheckMetadata{}, &domain.ValidationError{Field: "id", Reason: "must be a non-empty string"}
	}

	meta := CheckMetadata{
		ID:           reg.ID,
		Name:         reg.Name,
		Description:  reg.Description,
		Check:        reg.Check,
		Category:     reg.Category,
		Priority:     domain.DefaultPriority,
		Dependencies: append([]string(nil), reg.Dependencies...),
		Enabled:      !reg.Disabled,
	}
	if meta.Category == "" {
		meta.Category = domain.DefaultCategory
	}
	if reg.Priority != nil {
		meta.Priority = *reg.Priority
	}
	return meta, nil
}

// Unregister removes a check and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.checks[id]
	if !ok {
		return false
	}
	delete(r.checks, id)
	delete(r.categories[meta.Category], id)
	return true
}

// Get looks up a check. A missing id is not an error.
func (r *Registry) Get(id string) (CheckMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.checks[id]
	return meta, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// IDs returns every registered id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.checks))
	for id := range r.checks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByCategory returns the checks of one category, enabled or not, in (priority, id) order.
func (r *Registry) ByCategory(category string) []CheckMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.categories[category]
	out := make([]CheckMetadata, 0, len(members))
	for id := range members {
		out = append(out, r.checks[id])
	}
	sortMetadata(out)
	return out
}

// Categories returns every known category name, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.categories))
	for c := range r.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ExecutionOrder returns enabled check ids sorted by (priority, id). When ids
// are given the result is restricted to them; unknown ids are dropped silently.
func (r *Registry) ExecutionOrder(ids ...string) []string {
	return idsOf(r.enabledMetadata(ids))
}

func (r *Registry) enabledMetadata(ids []string) []CheckMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var selected []CheckMetadata
	if len(ids) == 0 {
		for _, meta := range r.checks {
			if meta.Enabled {
				selected = append(selected, meta)
			}
		}
	} else {
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if meta, ok := r.checks[id]; ok && meta.Enabled {
				selected = append(selected, meta)
			}
		}
	}
	sortMetadata(selected)
	return selected
}

// DependencyOrder is ExecutionOrder with declared dependencies honoured: a
// check never precedes a selected check it depends on. Dependencies outside
// the selection are ignored. Among ready checks (priority, id) decides.
func (r *Registry) DependencyOrder(ids ...string) ([]string, error) {
	selected := r.enabledMetadata(ids)
	position := make(map[string]int, len(selected))
	for i, meta := range selected {
		position[meta.ID] = i
	}

	indegree := make([]int, len(selected))
	dependents := make([][]int, len(selected))
	for i, meta := range selected {
		for _, dep := range meta.Dependencies {
			j, ok := position[dep]
			if !ok || j == i {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range selected {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(selected))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, selected[next].ID)
		for _, d := range dependents[next] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) < len(selected) {
		var stuck []string
		for i, meta := range selected {
			if indegree[i] > 0 {
				stuck = append(stuck, meta.ID)
			}
		}
		return nil, errors.Wrapf(domain.ErrDependencyCycle, "checks %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

// Execute runs one check. Every failure mode comes back as a typed error:
// unknown id, disabled check, plug-in error or panic, malformed result.
func (r *Registry) Execute(ctx context.Context, id string, provider ports.Provider, opts ports.CheckOptions) (domain.CheckResult, error) {
	meta, ok := r.Get(id)
	if !ok {
		return domain.CheckResult{}, errors.Wrapf(domain.ErrCheckNotRegistered, "check %q", id)
	}
	if !meta.Enabled {
		return domain.CheckResult{}, errors.Wrapf(domain.ErrCheckDisabled, "check %q", id)
	}
	if opts == nil {
		opts = ports.CheckOptions{}
	}

	res, err := invoke(ctx, meta, provider, opts)
	if err != nil {
		return domain.CheckResult{}, &domain.CheckExecutionError{CheckID: id, Cause: err}
	}
	if !domain.IsValidResult(res) {
		return domain.CheckResult{}, errors.Wrapf(domain.ErrInvalidResult, "check %q", id)
	}
	return res, nil
}

func invoke(ctx context.Context, meta CheckMetadata, provider ports.Provider, opts ports.CheckOptions) (res domain.CheckResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("panic: %v", rec)
		}
	}()
	return meta.Check(ctx, provider, opts)
}

// AutoDiscover registers the built-in plugins once. Plugins that fail to load
// or collide with an existing id are logged and skipped; their errors are
// returned together after the rest have been registered.
func (r *Registry) AutoDiscover(ctx context.Context) error {
	r.discoverMu.Lock()
	defer r.discoverMu.Unlock()

	r.mu.RLock()
	done := r.discovered
	r.mu.RUnlock()
	if done {
		return nil
	}

	var result *multierror.Error
	for _, plugin := range r.plugins {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		if err := r.loadPlugin(plugin); err != nil {
			r.warn("plugin skipped", map[string]interface{}{"plugin": plugin.Name, "error": err.Error()})
			result = multierror.Append(result, errors.Wrapf(err, "plugin %s", plugin.Name))
		}
	}

	r.mu.Lock()
	r.discovered = true
	r.mu.Unlock()

	r.debug("discovery finished", map[string]interface{}{"checks": len(r.IDs())})
	return result.ErrorOrNil()
}

func (r *Registry) loadPlugin(plugin Plugin) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("panic while loading: %v", rec)
		}
	}()
	if plugin.Load == nil {
		return errors.New("no loader")
	}
	reg, err := plugin.Load()
	if err != nil {
		return err
	}
	return r.Register(reg)
}

// Discovered reports whether AutoDiscover has completed since the last Clear.
func (r *Registry) Discovered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.discovered
}

// SetEnabled toggles a check and reports whether it exists.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.checks[id]
	if !ok {
		return false
	}
	meta.Enabled = enabled
	r.checks[id] = meta
	return true
}

// Clear drops every check, re-seeds the default categories and allows
// AutoDiscover to run again.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// Summary counts checks by state and category.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Summary{
		Total:      len(r.checks),
		Categories: make(map[string]int, len(r.categories)),
		Discovered: r.discovered,
	}
	for _, meta := range r.checks {
		if meta.Enabled {
			s.Enabled++
		} else {
			s.Disabled++
		}
	}
	for c, members := range r.categories {
		s.Categories[c] = len(members)
	}
	return s
}

func (r *Registry) debug(msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, fields)
	}
}

func (r *Registry) warn(msg string, fields map[string]interface{}) {
	if r.logger != nil {
		r.logger.Warn(msg, fields)
	}
}

func sortMetadata(metas []CheckMetadata) {
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].Priority != metas[j].Priority {
			return metas[i].Priority < metas[j].Priority
		}
		return metas[i].ID < metas[j].ID
	})
}

func idsOf(metas []CheckMetadata) []string {
	out := make([]string, len(metas))
	for i, meta := range metas {
		out[i] = meta.ID
	}
	return out
}
