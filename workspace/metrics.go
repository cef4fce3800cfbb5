package workspace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	persistWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_persist_writes_total",
		Help: "Total number of workspace documents written to storage",
	})

	persistFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_persist_failures_total",
		Help: "Total number of failed workspace document writes",
	})

	remoteUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_remote_updates_total",
		Help: "Storage change notifications received, by outcome",
	}, []string{"outcome"})

	historySnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_history_snapshots_total",
		Help: "Total number of undo snapshots recorded",
	})

	containmentUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_containment_updates_total",
		Help: "Total number of container box or membership updates applied",
	})

	workspacesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canvas_workspaces",
		Help: "Number of workspaces held by the most recently updated store",
	})
)
