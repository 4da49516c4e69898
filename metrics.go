package adblock

import "github.com/AdguardTeam/adblock/filterlist"

// Metrics is an interface for collecting the statistics of an [Engine].
type Metrics interface {
	// ObserveRequest records the decision made for a network request.
	ObserveRequest(blocked bool)

	// ObserveHost records the decision made for a hostname.
	ObserveHost(blocked bool)

	// ObserveCSS records the number of selectors collected for a page.
	ObserveCSS(n int)

	// ObserveReload records the result of a reload.
	ObserveReload(ok bool)

	// SetStats sets the statistics of the current snapshot.
	SetStats(s filterlist.Stats)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// ObserveRequest implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveRequest(_ bool) {}

// ObserveHost implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveHost(_ bool) {}

// ObserveCSS implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveCSS(_ int) {}

// ObserveReload implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveReload(_ bool) {}

// SetStats implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) SetStats(_ filterlist.Stats) {}
