package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var SnapshotsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "feedback_snapshots_received_total",
	Help: "Feedback list snapshots delivered by the backend source",
})

var SnapshotSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "feedback_snapshot_records",
	Help: "Number of records in the latest feedback snapshot",
})

var SourceErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "feedback_source_errors_total",
	Help: "Errors reported by the backend source subscription",
})

var Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feedback_submissions_total",
	Help: "Kiosk submissions by transport and result",
}, []string{"transport", "result"})

var ViewRenderMillis = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "feedback_view_render_millis",
	Help:    "Milliseconds spent deriving a dashboard view from a snapshot",
	Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100},
})

var ActiveWatchers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "feedback_dashboard_watchers",
	Help: "Dashboard consumers currently watching for snapshots",
})
