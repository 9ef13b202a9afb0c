package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/service"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/response"
)

// PeriodHandler 申请期模块 HTTP 处理器
type PeriodHandler struct {
	periodSvc service.PeriodService
}

// NewPeriodHandler 创建 PeriodHandler
func NewPeriodHandler(periodSvc service.PeriodService) *PeriodHandler {
	return &PeriodHandler{periodSvc: periodSvc}
}

// GetCurrentPeriod 当前申请期及是否处于申请期内
// GET /api/v1/periods/current
func (h *PeriodHandler) GetCurrentPeriod(c *gin.Context) {
	current, err := h.periodSvc.GetCurrent(c.Request.Context())
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, current)
}

// CurrentPeriodICS 当前申请期的 iCalendar 文件
// GET /api/v1/periods/current.ics
func (h *PeriodHandler) CurrentPeriodICS(c *gin.Context) {
	data, err := h.periodSvc.CurrentICS(c.Request.Context())
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="application-period.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// ListPeriods 历史申请期（最新在前）
// GET /api/v1/periods
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	list, err := h.periodSvc.List(c.Request.Context())
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// SetPeriod 设置新的申请期，替换当前 active 申请期
// POST /api/v1/periods
func (h *PeriodHandler) SetPeriod(c *gin.Context) {
	var req dto.SetPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.SetPeriod(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.Created(c, period)
}

// handlePeriodError 统一处理申请期模块业务错误
func (h *PeriodHandler) handlePeriodError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, 13001, "当前没有申请期")
	default:
		if !respondAppError(c, err) {
			internalError(c, err)
		}
	}
}
