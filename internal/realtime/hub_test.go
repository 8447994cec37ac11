package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubResilienceReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventPhaseStarted, Data: map[string]any{"phase": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventPhaseCompleted, Data: map[string]any{"phase": 1}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventPhaseStarted {
		t.Fatalf("first event: want=%s got=%s", SSEEventPhaseStarted, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventPhaseCompleted {
		t.Fatalf("second event: want=%s got=%s", SSEEventPhaseCompleted, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventWorkflowCompleted, Data: map[string]any{"sync_id": "s-1"}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventWorkflowCompleted {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventWorkflowCompleted, gotReconnect.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	chanA := uuid.New().String()
	chanB := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, chanA)
	hub.AddChannel(clientB, chanB)

	hub.Broadcast(SSEMessage{Channel: chanA, Event: SSEEventPhaseFailed, Data: map[string]any{"phase": 3}})

	got := recvMessage(t, clientA.Outbound, time.Second)
	if got.Event != SSEEventPhaseFailed {
		t.Fatalf("clientA event: want=%s got=%s", SSEEventPhaseFailed, got.Event)
	}
	select {
	case msg := <-clientB.Outbound:
		t.Fatalf("clientB should not receive messages for %s, got %s", chanA, msg.Event)
	case <-time.After(100 * time.Millisecond):
	}
}
