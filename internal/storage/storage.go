package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	apperrors "github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/errors"
)

// 物理文件名前缀
const (
	FieldTranscript         = "transcript"
	FieldEnglishCertificate = "english_certificate"
	FieldOtherCertificate   = "other_certificate"
)

// 物理文件名前缀对应的表单字段名，FileError 以表单字段回报
var formFields = map[string]string{
	FieldTranscript:         "transcript_file",
	FieldEnglishCertificate: "english_certificate_file",
	FieldOtherCertificate:   "other_certificates_files",
}

// 允许的 MIME 类型及其可接受的扩展名（第一个为规范扩展名）
var allowedTypes = map[string][]string{
	"application/pdf": {".pdf"},
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
}

// 下载时按扩展名回填 Content-Type
var contentTypeByExt = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Upload 一个待入库的上传文件
type Upload struct {
	Field string // 物理文件名前缀，见 Field* 常量
	Name  string // 客户端原始文件名
	Size  int64  // 客户端声明的大小，写入时仍会实际计数
	Open  func() (io.ReadCloser, error)
}

// FromFileHeader 由 multipart 表单文件构造 Upload
func FromFileHeader(field string, fh *multipart.FileHeader) Upload {
	return Upload{
		Field: field,
		Name:  fh.Filename,
		Size:  fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// NewUpload 由内存数据构造 Upload
func NewUpload(field, name string, data []byte) Upload {
	return Upload{
		Field: field,
		Name:  name,
		Size:  int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FormField 客户端提交该文件时使用的表单字段名
func (u Upload) FormField() string {
	if f, ok := formFields[u.Field]; ok {
		return f
	}
	return u.Field
}

// StoredFile 已写入磁盘的文件
type StoredFile struct {
	Field        string
	Name         string // 物理文件名（服务端生成）
	OriginalName string
	ContentType  string
	Size         int64
}

// File 打开的已存储文件
type File struct {
	io.ReadSeekCloser
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// FileInfo 目录中的文件（孤儿清理用）
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FileStore 上传文件存储接口
type FileStore interface {
	Validate(u Upload) error
	Store(ctx context.Context, ownerID int64, uploads []Upload) ([]StoredFile, error)
	Rollback(names []string) error
	Open(name string) (*File, error)
	Remove(names []string) ([]string, error)
	List() ([]FileInfo, error)
}

// LocalFileStore 本地扁平目录实现
type LocalFileStore struct {
	dir         string
	maxFileSize int64
	now         func() time.Time
	logger      *zap.Logger
}

// NewLocalFileStore 创建本地文件存储
func NewLocalFileStore(cfg *config.StorageConfig, logger *zap.Logger) *LocalFileStore {
	return &LocalFileStore{
		dir:         cfg.UploadDir,
		maxFileSize: cfg.MaxFileSize,
		now:         time.Now,
		logger:      logger,
	}
}

// Dir 上传目录
func (s *LocalFileStore) Dir() string { return s.dir }

// ────────────────────── Validate ──────────────────────

// Validate 校验大小与内容类型；类型以内容嗅探结果为准，不信任客户端声明
func (s *LocalFileStore) Validate(u Upload) error {
	_, err := s.inspect(u)
	return err
}

// inspect 返回应使用的扩展名
func (s *LocalFileStore) inspect(u Upload) (string, error) {
	if u.Size > s.maxFileSize {
		return "", apperrors.File(u.FormField(), u.Name, fmt.Sprintf("文件大小超过上限 %d 字节", s.maxFileSize))
	}
	if u.Open == nil {
		return "", apperrors.File(u.FormField(), u.Name, "文件不可读")
	}

	rc, err := u.Open()
	if err != nil {
		return "", apperrors.File(u.FormField(), u.Name, "文件不可读")
	}
	defer rc.Close()

	head := make([]byte, 3072)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperrors.File(u.FormField(), u.Name, "文件不可读")
	}
	if n == 0 {
		return "", apperrors.File(u.FormField(), u.Name, "文件为空")
	}

	detected := mimetype.Detect(head[:n])
	for mime, exts := range allowedTypes {
		if !detected.Is(mime) {
			continue
		}
		orig := strings.ToLower(filepath.Ext(u.Name))
		for _, e := range exts {
			if orig == e {
				return e, nil
			}
		}
		return exts[0], nil
	}
	return "", apperrors.File(u.FormField(), u.Name, "仅支持 PDF、JPEG、PNG 文件，实际类型 "+detected.String())
}

// ────────────────────── Store ──────────────────────

// Store 依次写入 uploads；任一失败（含 ctx 取消）时删除本次已写入的文件
func (s *LocalFileStore) Store(ctx context.Context, ownerID int64, uploads []Upload) (stored []StoredFile, err error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, apperrors.Storage("创建上传目录失败", err)
	}

	defer func() {
		if err == nil {
			return
		}
		names := make([]string, 0, len(stored))
		for _, f := range stored {
			names = append(names, f.Name)
		}
		if rbErr := s.Rollback(names); rbErr != nil {
			s.logger.Error("回滚已写入文件失败", zap.Strings("files", names), zap.Error(rbErr))
		}
		stored = nil
	}()

	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		f, err := s.storeOne(ctx, ownerID, u)
		if err != nil {
			return stored, err
		}
		stored = append(stored, *f)
	}
	return stored, nil
}

func (s *LocalFileStore) storeOne(ctx context.Context, ownerID int64, u Upload) (*StoredFile, error) {
	ext, err := s.inspect(u)
	if err != nil {
		return nil, err
	}

	src, err := u.Open()
	if err != nil {
		return nil, apperrors.File(u.FormField(), u.Name, "文件不可读")
	}
	defer src.Close()

	name := fmt.Sprintf("%s_%d_%d_%s%s", u.Field, ownerID, s.now().UnixMilli(), uuid.NewString()[:8], ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, apperrors.Storage("创建文件失败", err)
	}

	written, copyErr := io.Copy(dst, io.LimitReader(&ctxReader{ctx: ctx, r: src}, s.maxFileSize+1))
	closeErr := dst.Close()

	switch {
	case copyErr != nil && ctx.Err() != nil:
		err = ctx.Err()
	case copyErr != nil:
		err = apperrors.Storage("写入文件失败", copyErr)
	case closeErr != nil:
		err = apperrors.Storage("写入文件失败", closeErr)
	case written > s.maxFileSize:
		err = apperrors.File(u.FormField(), u.Name, fmt.Sprintf("文件大小超过上限 %d 字节", s.maxFileSize))
	case written == 0:
		err = apperrors.File(u.FormField(), u.Name, "文件为空")
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Error("删除不完整文件失败", zap.String("file", name), zap.Error(rmErr))
		}
		return nil, err
	}

	return &StoredFile{
		Field:        u.Field,
		Name:         name,
		OriginalName: u.Name,
		ContentType:  contentTypeByExt[ext],
		Size:         written,
	}, nil
}

// ctxReader 每次 Read 前检查 ctx，客户端断开时中止拷贝
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ────────────────────── Rollback / Remove ──────────────────────

// Rollback 删除给定文件；文件不存在不算错误
func (s *LocalFileStore) Rollback(names []string) error {
	_, err := s.Remove(names)
	return err
}

// Remove 删除给定文件，返回实际删除的文件名
func (s *LocalFileStore) Remove(names []string) ([]string, error) {
	var (
		removed []string
		errs    error
	)
	for _, name := range names {
		if !validName(name) {
			errs = multierr.Append(errs, fmt.Errorf("非法文件名 %q", name))
			continue
		}
		err := os.Remove(filepath.Join(s.dir, name))
		switch {
		case err == nil:
			removed = append(removed, name)
		case os.IsNotExist(err):
		default:
			errs = multierr.Append(errs, err)
		}
	}
	return removed, errs
}

// ────────────────────── Open / List ──────────────────────

// Open 打开已存储文件；只接受不含路径的文件名
func (s *LocalFileStore) Open(name string) (*File, error) {
	if !validName(name) {
		return nil, apperrors.NotFound("文件不存在")
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("文件不存在")
		}
		return nil, apperrors.Storage("打开文件失败", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apperrors.Storage("读取文件信息失败", err)
	}

	ct, ok := contentTypeByExt[strings.ToLower(filepath.Ext(name))]
	if !ok {
		ct = "application/octet-stream"
	}
	return &File{
		ReadSeekCloser: f,
		Name:           name,
		ContentType:    ct,
		Size:           info.Size(),
		ModTime:        info.ModTime(),
	}, nil
}

// List 列出上传目录中的普通文件；目录不存在时返回空
func (s *LocalFileStore) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
