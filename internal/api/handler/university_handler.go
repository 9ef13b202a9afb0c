package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/service"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/response"
)

// UniversityHandler 合作院校 HTTP 处理器
type UniversityHandler struct {
	universitySvc service.UniversityService
}

// NewUniversityHandler 创建 UniversityHandler
func NewUniversityHandler(universitySvc service.UniversityService) *UniversityHandler {
	return &UniversityHandler{universitySvc: universitySvc}
}

// ListUniversities 合作院校列表
// GET /api/v1/universities
func (h *UniversityHandler) ListUniversities(c *gin.Context) {
	list, err := h.universitySvc.List(c.Request.Context())
	if err != nil {
		h.handleUniversityError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetUniversity 院校详情
// GET /api/v1/universities/:id
func (h *UniversityHandler) GetUniversity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	u, err := h.universitySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleUniversityError(c, err)
		return
	}

	response.OK(c, u)
}

// CreateUniversity 新增院校
// POST /api/v1/universities
func (h *UniversityHandler) CreateUniversity(c *gin.Context) {
	var req dto.CreateUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	u, err := h.universitySvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleUniversityError(c, err)
		return
	}

	response.Created(c, u)
}

func (h *UniversityHandler) handleUniversityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUniversityNotFound):
		response.NotFound(c, 12001, "院校不存在")
	default:
		internalError(c, err)
	}
}
