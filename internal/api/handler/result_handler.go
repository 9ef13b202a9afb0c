package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/service"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ResultHandler 录取与结果发布 HTTP 处理器
type ResultHandler struct {
	resultSvc service.ResultService
}

// NewResultHandler 创建 ResultHandler
func NewResultHandler(resultSvc service.ResultService) *ResultHandler {
	return &ResultHandler{resultSvc: resultSvc}
}

// BulkAccept 整体替换录取名单；空数组即清空
// POST /api/v1/admin/applications/accept
func (h *ResultHandler) BulkAccept(c *gin.Context) {
	var req dto.BulkAcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	n, err := h.resultSvc.BulkAccept(c.Request.Context(), req.ApplicationIDs)
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	response.OK(c, dto.BulkAcceptResponse{Accepted: n})
}

// PublishResults 发布最近一个已结束申请期的录取结果
// POST /api/v1/admin/results/publish
func (h *ResultHandler) PublishResults(c *gin.Context) {
	result, err := h.resultSvc.Publish(c.Request.Context())
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	response.OK(c, result)
}

// PublishedResults 已发布的录取结果
// GET /api/v1/results
func (h *ResultHandler) PublishedResults(c *gin.Context) {
	result, err := h.resultSvc.PublishedResults(c.Request.Context())
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	response.OK(c, result)
}

// ExportResults 导出已发布结果为 Excel
// GET /api/v1/admin/results/export
func (h *ResultHandler) ExportResults(c *gin.Context) {
	buf, filename, err := h.resultSvc.ExportResults(c.Request.Context())
	if err != nil {
		h.handleResultError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ResultHandler) handleResultError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrResultsNotPublished):
		response.NotFound(c, 16002, "结果尚未发布")
	case errors.Is(err, service.ErrExportGenerateFail):
		internalError(c, err)
	default:
		if !respondAppError(c, err) {
			internalError(c, err)
		}
	}
}
