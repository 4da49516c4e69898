package adblock

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/AdguardTeam/adblock/filterlist"
	"github.com/AdguardTeam/adblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/shirou/gopsutil/v3/process"
)

// DefaultReloadDelay is the default delay between a change in the filter list
// directory and the reload.
const DefaultReloadDelay = 1 * time.Second

// Config is the configuration structure for an [Engine].
type Config struct {
	// Logger is used to log the loading of filter lists.  It must not be
	// nil.
	Logger *slog.Logger

	// Metrics is used to collect the statistics.  If nil, [EmptyMetrics] is
	// used.
	Metrics Metrics

	// Dir is the path to the directory with the filter lists.
	Dir string

	// ReloadDelay is the delay between a change in Dir and the reload done by
	// [Engine.Watch].  If zero, [DefaultReloadDelay] is used.
	ReloadDelay time.Duration
}

// Engine holds the current snapshot of filter lists and evaluates requests
// and pages against it.  The snapshot is replaced as a whole on reload, so
// the evaluations in progress keep using the snapshot they've started with.
//
// Engine is safe for concurrent use.
type Engine struct {
	logger  *slog.Logger
	metrics Metrics
	lists   *atomic.Pointer[filterlist.Collection]

	// updatedAt is the Unix time in seconds of the last snapshot
	// replacement.
	updatedAt *atomic.Int64

	dir         string
	reloadDelay time.Duration
}

// New returns a new engine with an empty snapshot.  Call [Engine.Reload] to
// load the filter lists.  c must not be nil.
func New(c *Config) (e *Engine) {
	m := c.Metrics
	if m == nil {
		m = EmptyMetrics{}
	}

	delay := c.ReloadDelay
	if delay == 0 {
		delay = DefaultReloadDelay
	}

	e = &Engine{
		logger:      c.Logger,
		metrics:     m,
		lists:       &atomic.Pointer[filterlist.Collection]{},
		updatedAt:   &atomic.Int64{},
		dir:         c.Dir,
		reloadDelay: delay,
	}

	e.SetLists(nil)

	return e
}

// Lists returns the current snapshot.  It must not be modified.
func (e *Engine) Lists() (c filterlist.Collection) {
	return *e.lists.Load()
}

// SetLists replaces the current snapshot with c.
func (e *Engine) SetLists(c filterlist.Collection) {
	e.lists.Store(&c)
	e.updatedAt.Store(time.Now().Unix())
	e.metrics.SetStats(c.Stats())
}

// UpdatedAt returns the time of the last snapshot replacement truncated to
// seconds.
func (e *Engine) UpdatedAt() (t time.Time) {
	return time.Unix(e.updatedAt.Load(), 0)
}

// Reload loads the filter lists from the directory and replaces the current
// snapshot.  If the directory cannot be read, the current snapshot is kept
// and the error is returned.
func (e *Engine) Reload(ctx context.Context) (err error) {
	start := time.Now()

	c, err := filterlist.LoadDir(ctx, e.dir, e.logger)
	if err != nil {
		e.metrics.ObserveReload(false)

		return err
	}

	e.SetLists(c)
	e.metrics.ObserveReload(true)

	stats := c.Stats()
	e.logger.InfoContext(
		ctx,
		"filter lists reloaded",
		"num_lists", len(c),
		"num_rules", stats.Total(),
		"num_skipped", stats.Skipped,
		"elapsed", time.Since(start),
	)

	e.logMemoryUsage(ctx)

	return nil
}

// logMemoryUsage logs the resident set size of the current process.
func (e *Engine) logMemoryUsage(ctx context.Context) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		e.logger.DebugContext(ctx, "getting process info", slogutil.KeyError, err)

		return
	}

	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		e.logger.DebugContext(ctx, "getting memory info", slogutil.KeyError, err)

		return
	}

	e.logger.DebugContext(ctx, "memory usage", "rss_kib", mem.RSS/1024)
}

// MatchRequest returns the rule of the current snapshot that blocks r and the
// name of its filter list.  rule is nil if r is allowed.
func (e *Engine) MatchRequest(
	ctx context.Context,
	r *rules.Request,
) (rule *rules.NetworkRule, listName string) {
	rule, l := MatchRequest(e.Lists(), r)
	e.metrics.ObserveRequest(rule != nil)

	if rule == nil {
		return nil, ""
	}

	e.logger.DebugContext(ctx, "request blocked", "url", r.URL, "rule", rule.Text(), "list", l.Name)

	return rule, l.Name
}

// ShouldBlock returns true if r must be blocked according to the current
// snapshot.
func (e *Engine) ShouldBlock(ctx context.Context, r *rules.Request) (ok bool) {
	rule, _ := e.MatchRequest(ctx, r)

	return rule != nil
}

// ShouldBlockHost returns true if hostname must be blocked according to the
// host-level rules of the current snapshot.
func (e *Engine) ShouldBlockHost(ctx context.Context, hostname string) (ok bool) {
	rule, l := MatchHost(e.Lists(), hostname)
	ok = rule != nil
	e.metrics.ObserveHost(ok)

	if ok {
		e.logger.DebugContext(ctx, "host blocked", "host", hostname, "rule", rule.Text(), "list", l.Name)
	}

	return ok
}

// CollectCSSRules returns the selectors of the element hiding rules of the
// current snapshot which apply to the page on domain.
func (e *Engine) CollectCSSRules(domain string) (selectors []string) {
	selectors = CollectCSSRules(e.Lists(), domain)
	e.metrics.ObserveCSS(len(selectors))

	return selectors
}
