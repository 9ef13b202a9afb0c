package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 业务错误分类，Handler 层据此映射 HTTP 状态码与业务码
type Kind string

const (
	KindValidation           Kind = "validation"
	KindPeriodInactive       Kind = "period_inactive"
	KindDuplicateApplication Kind = "duplicate_application"
	KindFile                 Kind = "file"
	KindStorage              Kind = "storage"
	KindPublishPrecondition  Kind = "publish_precondition"
	KindAuthorization        Kind = "authorization"
	KindNotFound             Kind = "not_found"
)

// 用于 errors.Is 比较的哨兵值，只比较 Kind
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrPeriodInactive       = &Error{Kind: KindPeriodInactive}
	ErrDuplicateApplication = &Error{Kind: KindDuplicateApplication}
	ErrFile                 = &Error{Kind: KindFile}
	ErrStorage              = &Error{Kind: KindStorage}
	ErrPublishPrecondition  = &Error{Kind: KindPublishPrecondition}
	ErrAuthorization        = &Error{Kind: KindAuthorization}
	ErrNotFound             = &Error{Kind: KindNotFound}
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string
	// Fields 仅 KindValidation 使用
	Fields []FieldError
	// File 仅 KindFile 使用：字段名 + 原始文件名
	FileField string
	FileName  string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, f := range e.Fields {
		fmt.Fprintf(&b, " [%s: %s]", f.Field, f.Message)
	}
	if e.FileField != "" {
		fmt.Fprintf(&b, " (%s=%q)", e.FileField, e.FileName)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同 Kind 即视为相等，便于 errors.Is(err, apperrors.ErrValidation)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Details 面向客户端的错误详情
func (e *Error) Details() string {
	switch {
	case len(e.Fields) > 0:
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return strings.Join(parts, "; ")
	case e.FileField != "":
		return fmt.Sprintf("%s (%s): %s", e.FileField, e.FileName, e.Message)
	default:
		return e.Message
	}
}

// ── 构造函数 ──

// Validation 构造字段校验错误
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "参数校验失败", Fields: fields}
}

// ValidationField 单字段校验错误的快捷方式
func ValidationField(field, message string) *Error {
	return Validation(FieldError{Field: field, Message: message})
}

// PeriodInactive 当前不在申请期内
func PeriodInactive() *Error {
	return &Error{Kind: KindPeriodInactive, Message: "当前不在申请期内"}
}

// DuplicateApplication 用户已提交过申请
func DuplicateApplication() *Error {
	return &Error{Kind: KindDuplicateApplication, Message: "已提交过申请"}
}

// File 上传文件不合法
func File(field, filename, message string) *Error {
	return &Error{Kind: KindFile, Message: message, FileField: field, FileName: filename}
}

// Storage 存储层失败（数据库或文件系统）
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// PublishPrecondition 发布结果的前置条件未满足
func PublishPrecondition(condition string) *Error {
	return &Error{Kind: KindPublishPrecondition, Message: condition}
}

// Authorization 无权访问；对“不存在”与“非本人”返回相同信息
func Authorization() *Error {
	return &Error{Kind: KindAuthorization, Message: "无权访问"}
}

// NotFound 资源不存在
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// As 提取 *Error，便于 Handler 读取 Details
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
