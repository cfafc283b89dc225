package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	applogger "KOLStats/pkg/logger"
)

// ConsumerHook wraps message handling. A BeforeHandle error skips the handler and
// sends the message down the failure path (OnError, DLQ, commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, kafka.Message, error)
	AfterHandle(ctx context.Context, km kafka.Message, err error)
	OnError(ctx context.Context, km kafka.Message, err error)
}

type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, kafka.Message, error) {
	return ctx, km, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

func (NoopHook) OnError(context.Context, kafka.Message, error) {}

// HookError is an error raised by a hook. Code classifies it ("ERR_PANIC", "ERR_VALIDATION").
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

// HookFuncs adapts plain functions to ConsumerHook. Nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, kafka.Message, error)
	After  func(context.Context, kafka.Message, error)
	Err    func(context.Context, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, kafka.Message, error) {
	if h.Before == nil {
		return ctx, km, nil
	}
	return h.Before(ctx, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, km, err)
	}
}

func (h HookFuncs) OnError(ctx context.Context, km kafka.Message, err error) {
	if h.Err != nil {
		h.Err(ctx, km, err)
	}
}

// HookChain runs Before hooks in order and After hooks in reverse. Hook panics are recovered.
type HookChain struct {
	hooks []ConsumerHook
}

func NewHookChain(hooks ...ConsumerHook) *HookChain {
	filtered := make([]ConsumerHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return &HookChain{hooks: filtered}
}

func (c *HookChain) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, kafka.Message, error) {
	for _, h := range c.hooks {
		nextCtx, nextMsg, err := safeBefore(h, ctx, km)
		if err != nil {
			c.OnError(ctx, km, err)
			return ctx, km, err
		}
		ctx, km = nextCtx, nextMsg
	}
	return ctx, km, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		func(h ConsumerHook) {
			defer func() { _ = recover() }()
			h.AfterHandle(ctx, km, err)
		}(c.hooks[i])
	}
}

func (c *HookChain) OnError(ctx context.Context, km kafka.Message, err error) {
	for _, h := range c.hooks {
		func(h ConsumerHook) {
			defer func() { _ = recover() }()
			h.OnError(ctx, km, err)
		}(h)
	}
}

func safeBefore(h ConsumerHook, ctx context.Context, km kafka.Message) (outCtx context.Context, outMsg kafka.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			outCtx, outMsg = ctx, km
			err = &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("hook panic: %v", r)}
		}
	}()
	return h.BeforeHandle(ctx, km)
}

type ctxKey string

const ctxTraceID ctxKey = "kafka_trace_id"

// TraceID returns the trace id set by TraceHook, if any.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}

// ExtractTraceID reads the trace_id header.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "trace_id" && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}

// TraceHook copies the trace_id header into the handler context.
func TraceHook() ConsumerHook {
	return HookFuncs{
		Before: func(ctx context.Context, km kafka.Message) (context.Context, kafka.Message, error) {
			if id := ExtractTraceID(km); id != "" {
				ctx = context.WithValue(ctx, ctxTraceID, id)
			}
			return ctx, km, nil
		},
	}
}

// LoggingHook warns on every failed attempt.
func LoggingHook(l *applogger.Logger) ConsumerHook {
	return HookFuncs{
		Err: func(ctx context.Context, km kafka.Message, err error) {
			l.Warn("kafka message handling failed",
				applogger.String("topic", km.Topic),
				applogger.Int("partition", km.Partition),
				applogger.Int64("offset", km.Offset),
				applogger.String("trace_id", TraceID(ctx)),
				applogger.Error(err))
		},
	}
}
