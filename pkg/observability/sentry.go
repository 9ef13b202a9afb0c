package observability

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
)

// InitSentry 初始化 Sentry；dsn 为空时返回空操作的 flush
func InitSentry(cfg *config.SentryConfig) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr 上报错误；未初始化时 sentry-go 会静默丢弃
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureErrWithTags 上报错误并附带标签（如 job 名、请求 ID）
func CaptureErrWithTags(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}
