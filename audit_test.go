package authflow

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Contains(needle string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), needle)
}

func buildAuditTestFlows(t *testing.T, sink AuditSink, cap Capability) *Flows {
	t.Helper()

	cfg := defaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	flows, err := New().WithConfig(cfg).WithCapability(cap).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	return flows
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}

	// Audit stays disabled even with a sink attached.
	flows, err := New().WithCapability(&fakeCapability{}).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	c := flows.NewSignIn()
	if err := c.Submit(context.Background(), Form{Email: "a@b.c", Password: "x"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	flows.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no sink calls, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	sink := newCaptureSink(32)
	cap := &fakeCapability{}
	flows := buildAuditTestFlows(t, sink, cap)

	c := flows.NewSignIn()
	ctx := WithClientIP(context.Background(), "203.0.113.9")
	if err := c.Submit(ctx, Form{Email: "alice@example.com", Password: "pw"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	flows.Close()

	select {
	case event := <-sink.events:
		if event.EventType != auditEventSignInSubmit {
			t.Fatalf("expected %q, got %q", auditEventSignInSubmit, event.EventType)
		}
		if !event.Success {
			t.Fatalf("expected success event")
		}
		if event.Provider != ProviderPassword || event.Flow != string(FlowSignIn) {
			t.Fatalf("unexpected provider/flow: %q/%q", event.Provider, event.Flow)
		}
		if event.IP != "203.0.113.9" {
			t.Fatalf("expected client IP carried, got %q", event.IP)
		}
		if event.FormID != c.FormID() {
			t.Fatalf("expected form id %q, got %q", c.FormID(), event.FormID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an audit event")
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventSignInSubmit,
		FormID:    "f1",
		IP:        "127.0.0.1",
		Success:   true,
	}
	sink.Emit(context.Background(), event)

	if !buf.Contains("signin_submit") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"form_id\":\"f1\"") {
		t.Fatal("expected JSON log line to contain form id")
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{})

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditNoCredentialsInEvents(t *testing.T) {
	sensitivePassword := "correct-password-123"

	var buf syncBuffer
	cap := &fakeCapability{}

	cfg := defaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	flows, err := New().WithConfig(cfg).WithCapability(cap).WithAuditSink(NewJSONWriterSink(&buf)).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	ctx := context.Background()
	c := flows.NewSignIn()
	if err := c.Submit(ctx, Form{Email: "alice@example.com", Password: sensitivePassword}); err != nil {
		t.Fatalf("sign-in submit failed: %v", err)
	}

	s := flows.NewSignUp()
	if err := s.Submit(ctx, Form{
		Email:           "new@user.com",
		Password:        sensitivePassword,
		ConfirmPassword: sensitivePassword,
	}); err != nil {
		t.Fatalf("sign-up submit failed: %v", err)
	}

	flows.Close()

	if buf.Contains(sensitivePassword) {
		t.Fatal("audit output must never contain a submitted password")
	}
}
