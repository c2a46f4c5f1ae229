package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"document-qa/internal/models"
)

const namespace = "document_qa"

// Recorder collects pipeline metrics on its own registry. A nil Recorder
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	documents      prometheus.Counter
	chunks         prometheus.Counter
	questions      prometheus.Counter
	failures       *prometheus.CounterVec
	buildLatency   prometheus.Histogram
	answerLatency  prometheus.Histogram
	activeSessions prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		documents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents read by successful index builds",
		}),
		chunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded into an index",
		}),
		questions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_answered_total",
			Help:      "Questions answered",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed actions by operation and error kind",
		}, []string{"operation", "kind"}),
		buildLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Time to ingest, chunk and embed an upload batch",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		answerLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Time to answer one question",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open sessions",
		}),
	}
}

// Registry exposes the collectors for scraping.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveBuild records one Process call.
func (r *Recorder) ObserveBuild(documents, chunks int, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.buildLatency.Observe(elapsed.Seconds())
	if err != nil {
		r.failures.WithLabelValues("process", string(models.KindOf(err))).Inc()
		return
	}
	r.documents.Add(float64(documents))
	r.chunks.Add(float64(chunks))
}

// ObserveAnswer records one Ask call.
func (r *Recorder) ObserveAnswer(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.failures.WithLabelValues("ask", string(models.KindOf(err))).Inc()
		return
	}
	r.answerLatency.Observe(elapsed.Seconds())
	r.questions.Inc()
}

func (r *Recorder) SessionOpened() {
	if r != nil {
		r.activeSessions.Inc()
	}
}

func (r *Recorder) SessionClosed() {
	if r != nil {
		r.activeSessions.Dec()
	}
}
