// Package metrics exposes the scheduling core's Prometheus counters,
// grounded on NikeGunn-tutu's internal/infra/observability package-level
// promauto.New* variable style (SPEC_FULL.md §B). The scrape endpoint
// itself is out of scope (spec.md §1's "service façade" Non-goal); this
// package only registers and updates the counters an external telemetry
// scraper would pull from the default Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProgramsRejected counts programs the Collector declined to load,
// labeled by reason (internal/collector.LoadPrograms's skip counters).
var ProgramsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gemscheduler",
	Subsystem: "collector",
	Name:      "programs_rejected_total",
	Help:      "Total programs rejected during ingest, by reason.",
}, []string{"reason"})

// ObservationsSkipped counts observations dropped from scheduling
// consideration, labeled by reason ("resource_blocked" or
// "program_filtered", as counted by internal/selector).
var ObservationsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gemscheduler",
	Subsystem: "collector",
	Name:      "observations_skipped_total",
	Help:      "Total observations skipped, by reason.",
}, []string{"reason"})

// JobTimeouts counts internal/jobqueue jobs that hit their per-job
// timeout, labeled by pool ("realtime"/"standard").
var JobTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gemscheduler",
	Subsystem: "jobqueue",
	Name:      "timeouts_total",
	Help:      "Total jobs that timed out, by pool.",
}, []string{"pool"})

// FaultsObserved counts Fault events folded into a night's event queue,
// labeled by site (spec.md §4.6's event Kind handling).
var FaultsObserved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gemscheduler",
	Subsystem: "events",
	Name:      "faults_total",
	Help:      "Total Fault events processed, by site.",
}, []string{"site"})

// OptimizerPlacements counts visits the Optimizer successfully placed
// into a plan, labeled by site.
var OptimizerPlacements = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gemscheduler",
	Subsystem: "optimizer",
	Name:      "placements_total",
	Help:      "Total visits placed into a plan, by site.",
}, []string{"site"})
