package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/errors"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/observability"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/response"
)

// 各类业务错误对应的业务码
const (
	codeValidation          = 10001
	codePeriodInactive      = 13002
	codeDuplicate           = 14001
	codeApplicationNotFound = 14002
	codeForbidden           = 14003
	codeFile                = 15001
	codePublishPrecondition = 16001
)

// respondAppError 按 apperrors.Kind 写入响应；err 不是 *apperrors.Error 时返回 false
func respondAppError(c *gin.Context, err error) bool {
	e, ok := apperrors.As(err)
	if !ok {
		return false
	}

	switch e.Kind {
	case apperrors.KindValidation:
		response.ErrorWithDetails(c, http.StatusBadRequest, codeValidation, e.Message, e.Fields)
	case apperrors.KindPeriodInactive:
		response.Conflict(c, codePeriodInactive, e.Message)
	case apperrors.KindDuplicateApplication:
		response.Conflict(c, codeDuplicate, e.Message)
	case apperrors.KindFile:
		response.ErrorWithDetails(c, http.StatusBadRequest, codeFile, "文件校验失败", gin.H{
			"field":    e.FileField,
			"filename": e.FileName,
			"reason":   e.Message,
		})
	case apperrors.KindPublishPrecondition:
		response.ErrorWithDetails(c, http.StatusConflict, codePublishPrecondition, "发布条件未满足", e.Message)
	case apperrors.KindAuthorization:
		response.Forbidden(c, codeForbidden, e.Message)
	case apperrors.KindNotFound:
		response.NotFound(c, codeApplicationNotFound, e.Message)
	default:
		// 存储失败不向客户端暴露细节
		internalError(c, err)
	}
	return true
}

// internalError 上报 Sentry 后返回通用 500
func internalError(c *gin.Context, err error) {
	tags := map[string]string{"route": c.FullPath()}
	if rid, ok := c.Get("request_id"); ok {
		if s, ok := rid.(string); ok {
			tags["request_id"] = s
		}
	}
	observability.CaptureErrWithTags(err, tags)
	_ = c.Error(err)
	response.InternalError(c)
}
