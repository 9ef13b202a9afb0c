package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/service"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/storage"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/response"
)

// multipart 文件字段名
const (
	formTranscript  = "transcript_file"
	formEnglish     = "english_certificate_file"
	formOther       = "other_certificates_files"
	multipartMemory = 8 << 20
)

// ApplicationHandler 申请模块 HTTP 处理器
type ApplicationHandler struct {
	appSvc service.ApplicationService
}

// NewApplicationHandler 创建 ApplicationHandler
func NewApplicationHandler(appSvc service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{appSvc: appSvc}
}

// ═══════════════════════════════════════════════════════════
// 学生接口
// ═══════════════════════════════════════════════════════════

// SubmitApplication 提交申请（multipart/form-data）
// POST /api/v1/applications
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		bindFailed(c, err)
		return
	}

	// 仅做类型解码；字段规则由 Service 在申请期与重复检查之后校验
	var req dto.SubmitApplicationRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	files := collectFiles(c.Request.MultipartForm)
	id, err := h.appSvc.Submit(c.Request.Context(), userID, &req, files)
	if err != nil {
		h.handleApplicationError(c, err)
		return
	}

	response.Created(c, dto.SubmitApplicationResponse{ApplicationID: id})
}

// CheckStatus 当前用户是否已提交申请
// GET /api/v1/applications/check-status
func (h *ApplicationHandler) CheckStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	has, err := h.appSvc.HasApplication(c.Request.Context(), userID)
	if err != nil {
		h.handleApplicationError(c, err)
		return
	}

	response.OK(c, dto.CheckStatusResponse{HasApplication: has})
}

// GetMyApplication 当前用户的申请详情
// GET /api/v1/applications/me
func (h *ApplicationHandler) GetMyApplication(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	app, err := h.appSvc.GetMine(c.Request.Context(), userID)
	if err != nil {
		h.handleApplicationError(c, err)
		return
	}

	response.OK(c, app)
}

// GetApplicationFile 下载申请附件（管理员或申请人本人）
// GET /api/v1/applications/:id/files/:type[/:index]
func (h *ApplicationHandler) GetApplicationFile(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	index := 0
	if raw := c.Param("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, 10001, "文件序号无效")
			return
		}
		index = n
	}

	f, err := h.appSvc.OpenFile(c.Request.Context(), caller, id, c.Param("type"), index)
	if err != nil {
		h.handleApplicationError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", f.ContentType)
	c.Header("Content-Disposition", "inline; filename*=UTF-8''"+url.PathEscape(f.Name))
	c.Header("Cache-Control", "private, no-store")
	http.ServeContent(c.Writer, c.Request, f.Name, f.ModTime, f)
}

// ═══════════════════════════════════════════════════════════
// 管理员接口
// ═══════════════════════════════════════════════════════════

// ListApplications 全部申请（分页，按提交时间倒序）
// GET /api/v1/admin/applications
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		bindFailed(c, err)
		return
	}

	list, total, err := h.appSvc.ListAll(c.Request.Context(), &page)
	if err != nil {
		h.handleApplicationError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

// ListAccepted 已录取申请（按排名顺序）
// GET /api/v1/admin/applications/accepted
func (h *ApplicationHandler) ListAccepted(c *gin.Context) {
	list, err := h.appSvc.ListAccepted(c.Request.Context())
	if err != nil {
		h.handleApplicationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// DeleteApplication 删除申请及其附件
// DELETE /api/v1/admin/applications/:id
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	removed, err := h.appSvc.Delete(c.Request.Context(), id)
	if err != nil {
		h.handleApplicationError(c, err)
		return
	}

	response.OK(c, dto.DeleteApplicationResponse{RemovedFiles: removed})
}

// handleApplicationError 统一处理申请模块业务错误
func (h *ApplicationHandler) handleApplicationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		// 客户端已断开，响应不会被读取
		c.Status(499)
	default:
		if !respondAppError(c, err) {
			internalError(c, err)
		}
	}
}

// ── 辅助函数 ──

func collectFiles(form *multipart.Form) *service.SubmissionFiles {
	files := &service.SubmissionFiles{}
	if form == nil {
		return files
	}
	if fh := first(form.File[formTranscript]); fh != nil {
		u := storage.FromFileHeader(storage.FieldTranscript, fh)
		files.Transcript = &u
	}
	if fh := first(form.File[formEnglish]); fh != nil {
		u := storage.FromFileHeader(storage.FieldEnglishCertificate, fh)
		files.EnglishCertificate = &u
	}
	for _, fh := range form.File[formOther] {
		files.OtherCertificates = append(files.OtherCertificates, storage.FromFileHeader(storage.FieldOtherCertificate, fh))
	}
	return files
}

func first(fhs []*multipart.FileHeader) *multipart.FileHeader {
	if len(fhs) == 0 {
		return nil
	}
	return fhs[0]
}

// parseID 解析路径参数 :id
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "ID 无效")
		return 0, false
	}
	return id, true
}
