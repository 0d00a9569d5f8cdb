package agent

import (
	"errors"
	"fmt"
)

// ValidationError 调用方输入有误（空商品名、未知分析类型），不重试
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TemplateError 模板缺失或占位符无值，属于配置缺陷，不重试
type TemplateError struct {
	Template string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// IsValidation 判断错误链中是否有 ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTemplate 判断错误链中是否有 TemplateError
func IsTemplate(err error) bool {
	var te *TemplateError
	return errors.As(err, &te)
}
