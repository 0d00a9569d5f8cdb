package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	calls int
}

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Chat(ctx context.Context, msgs []*schema.Message, allowList []string) (string, error) {
	b.calls++
	return "ok", nil
}

func TestBackendError(t *testing.T) {
	err := &BackendError{Provider: "zhipu", Status: 429, Message: "rate limited"}
	assert.Equal(t, "zhipu api error (status 429): rate limited", err.Error())

	err = &BackendError{Provider: "deepseek", Message: "timeout"}
	assert.Equal(t, "deepseek api error: timeout", err.Error())
}

func TestNewBackendError_KeepsExisting(t *testing.T) {
	orig := &BackendError{Provider: "gemini", Status: 500, Message: "boom"}
	wrapped := fmt.Errorf("call: %w", orig)

	got := NewBackendError("other", 0, wrapped)
	assert.Same(t, wrapped, got)
	assert.True(t, IsBackendError(got))

	got = NewBackendError("claude", 0, errors.New("dial tcp"))
	var be *BackendError
	require.True(t, errors.As(got, &be))
	assert.Equal(t, "claude", be.Provider)
	assert.Equal(t, "dial tcp", be.Message)
}

func TestCheckMessages(t *testing.T) {
	assert.Error(t, CheckMessages("x", nil))
	assert.NoError(t, CheckMessages("x", []*schema.Message{schema.UserMessage("hi")}))
}

func TestNewLimited(t *testing.T) {
	inner := &countingBackend{}
	assert.Same(t, Backend(inner), NewLimited(inner, 0, 0))

	b := NewLimited(inner, 600, 2)
	l, ok := b.(*Limited)
	require.True(t, ok)
	assert.Equal(t, "counting", l.Name())
	assert.Equal(t, 2, l.Limiter().Burst())

	out, err := b.Chat(context.Background(), []*schema.Message{schema.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, inner.calls)
}

func TestLimited_CanceledContext(t *testing.T) {
	inner := &countingBackend{}
	b := NewLimited(inner, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	// 先耗尽令牌，再用已取消的 context 等待
	_, err := b.Chat(ctx, []*schema.Message{schema.UserMessage("hi")}, nil)
	require.NoError(t, err)
	cancel()

	_, err = b.Chat(ctx, []*schema.Message{schema.UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.True(t, IsBackendError(err))
	assert.Equal(t, 1, inner.calls)
}
