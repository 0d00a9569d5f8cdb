// Package llm 定义文本生成后端的统一能力，以及各后端共用的错误类型。
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

// Backend 文本生成后端
//
// Chat 对每次调用只发起一次外部请求，不做重试。allowList 非空时限定可检索的外部信息类别，
// 不支持受限检索的实现将其视为无操作。
type Backend interface {
	Chat(ctx context.Context, msgs []*schema.Message, allowList []string) (string, error)
	Name() string
}

// Config 单个后端的已解析配置，构造后不再修改
type Config struct {
	Provider    string
	Variant     string // 协议：openai/zhipu/gemini/claude，为空时按 Provider 推断
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// HTTPTimeout 返回请求超时，未配置时为 120 秒
func (c Config) HTTPTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 120 * time.Second
}

// BackendError 后端调用失败：状态码非 200、超时、响应格式错误等
type BackendError struct {
	Provider string
	Status   int
	Message  string
}

func (e *BackendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

// NewBackendError 包装后端错误，已是 BackendError 的原样返回
func NewBackendError(provider string, status int, err error) error {
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: provider, Status: status, Message: err.Error()}
}

// IsBackendError 判断错误链中是否有 BackendError
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// CheckMessages 校验会话非空
func CheckMessages(provider string, msgs []*schema.Message) error {
	if len(msgs) == 0 {
		return &BackendError{Provider: provider, Message: "empty conversation"}
	}
	return nil
}

// Limited 为后端加上限流，等待令牌不算外部请求
type Limited struct {
	next    Backend
	limiter *rate.Limiter
}

// NewLimited 按 rpm/qps 构造限流后端，rpm <= 0 时不限流
func NewLimited(next Backend, rpm, qps int) Backend {
	if rpm <= 0 {
		return next
	}
	if qps <= 0 {
		qps = 1
	}
	limit := rate.Limit(float64(rpm) / 60.0)
	return &Limited{next: next, limiter: rate.NewLimiter(limit, qps)}
}

func (l *Limited) Name() string { return l.next.Name() }

func (l *Limited) Chat(ctx context.Context, msgs []*schema.Message, allowList []string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", &BackendError{Provider: l.next.Name(), Message: fmt.Sprintf("rate limiter: %v", err)}
	}
	return l.next.Chat(ctx, msgs, allowList)
}

// Limiter 暴露限流器，便于观察
func (l *Limited) Limiter() *rate.Limiter { return l.limiter }
