package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "erasmus"

var (
	// SubmissionsTotal 申请提交结果，outcome: accepted | period_inactive | duplicate | validation | file | storage | canceled
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Application submissions by outcome",
		},
		[]string{"outcome"},
	)

	// FileRollbacksTotal 提交失败后回滚删除的文件数
	FileRollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_rollbacks_total",
			Help:      "Stored files removed because the submission failed",
		},
	)

	// PeriodsExpiredTotal 被过期扫描置为 inactive 的申请期数量
	PeriodsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_expired_total",
			Help:      "Application periods deactivated by the expiry sweep",
		},
	)

	// OrphanFilesRemovedTotal 孤儿文件清理数量
	OrphanFilesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_files_removed_total",
			Help:      "Upload files removed by the orphan reaper",
		},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Handler /metrics 端点
func Handler() http.Handler {
	return promhttp.Handler()
}
