package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplier_sync_fetch_total",
			Help: "Total number of supplier page fetches by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supplier_sync_fetch_duration_seconds",
			Help:    "Histogram of supplier page fetch durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"outcome"},
	)
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplier_sync_records_total",
			Help: "Total number of supplier records processed by result.",
		},
		[]string{"result"},
	)
	pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplier_sync_pages_total",
			Help: "Total number of supplier pages written by result.",
		},
		[]string{"result"},
	)
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supplier_sync_runs_total",
			Help: "Total number of supplier sync runs.",
		},
		[]string{"trigger", "stop_reason"},
	)
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "supplier_sync_run_duration_seconds",
			Help:    "Histogram of supplier sync run durations.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)
	runInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "supplier_sync_run_in_progress",
			Help: "Whether a supplier sync run is currently executing.",
		},
	)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(fetchTotal, fetchDuration)
	prometheus.MustRegister(recordsTotal, pagesTotal)
	prometheus.MustRegister(runsTotal, runDuration, runInProgress)
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

// ==================== 同步指标 ====================

// RecordFetch 记录一次分页拉取，outcome 为 data/empty 或错误类型
func RecordFetch(outcome string, duration time.Duration) {
	fetchTotal.WithLabelValues(outcome).Inc()
	fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordPage 记录单页写入结果
func RecordPage(written, skipped, failed int, writeErr error) {
	recordsTotal.WithLabelValues("written").Add(float64(written))
	recordsTotal.WithLabelValues("skipped").Add(float64(skipped))
	recordsTotal.WithLabelValues("failed").Add(float64(failed))

	if writeErr != nil {
		pagesTotal.WithLabelValues("rolled_back").Inc()
		return
	}
	pagesTotal.WithLabelValues("committed").Inc()
}

// RunStarted / RunFinished 标记一次同步运行
func RunStarted() {
	runInProgress.Set(1)
}

func RunFinished(trigger, stopReason string, duration time.Duration) {
	runInProgress.Set(0)
	runsTotal.WithLabelValues(trigger, stopReason).Inc()
	runDuration.Observe(duration.Seconds())
}

// ==================== HTTP 指标 ====================

// RecordRequest 记录一次 HTTP 请求
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler Prometheus 指标导出
func Handler() http.Handler {
	return promhttp.Handler()
}
