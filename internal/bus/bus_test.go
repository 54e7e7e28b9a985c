package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rankstack/rank-search/internal/config"
	apperrors "github.com/rankstack/rank-search/internal/pkg/errors"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(TopicDocumentAdded, "indexer", map[string]any{"id": "doc-1"})

	if event.ID == "" {
		t.Error("expected non-empty event ID")
	}
	if event.Type != TopicDocumentAdded {
		t.Errorf("Type = %s, want %s", event.Type, TopicDocumentAdded)
	}
	if event.Source != "indexer" {
		t.Errorf("Source = %s, want indexer", event.Source)
	}
	if event.Timestamp == 0 {
		t.Error("expected non-zero timestamp")
	}

	other := NewEvent(TopicDocumentAdded, "indexer", nil)
	if other.ID == event.ID {
		t.Error("expected unique event IDs")
	}
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	ctx := context.Background()
	received := make(chan Event, 1)

	err := b.Subscribe(ctx, TopicSearchExecuted, func(_ context.Context, e Event) error {
		received <- e
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	event := NewEvent(TopicSearchExecuted, "pipeline", "query text")
	if err := b.Publish(ctx, TopicSearchExecuted, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.ID != event.ID {
			t.Errorf("received event ID %s, want %s", got.ID, event.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestMemoryBus_MultipleHandlers(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	ctx := context.Background()
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		b.Subscribe(ctx, TopicBatchCompleted, func(context.Context, Event) error {
			count.Add(1)
			return nil
		})
	}

	b.Publish(ctx, TopicBatchCompleted, NewEvent(TopicBatchCompleted, "indexer", nil))

	if !b.DrainTimeout(time.Second) {
		t.Fatal("handlers did not complete")
	}
	if got := count.Load(); got != 3 {
		t.Errorf("expected 3 handler invocations, got %d", got)
	}
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	err := b.Publish(context.Background(), "unused.topic", NewEvent("unused.topic", "test", nil))
	if err != nil {
		t.Errorf("publish without subscribers should not fail: %v", err)
	}
}

func TestMemoryBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	ctx := context.Background()
	b.Subscribe(ctx, TopicEvalCompleted, func(context.Context, Event) error {
		return errors.New("handler failure")
	})

	if err := b.Publish(ctx, TopicEvalCompleted, NewEvent(TopicEvalCompleted, "eval", nil)); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
	b.DrainTimeout(time.Second)
}

func TestMemoryBus_Closed(t *testing.T) {
	b := NewMemoryBus()
	b.Close()

	ctx := context.Background()

	err := b.Publish(ctx, TopicSearchExecuted, NewEvent(TopicSearchExecuted, "test", nil))
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("expected UNAVAILABLE on closed bus, got %v", err)
	}

	err = b.Subscribe(ctx, TopicSearchExecuted, func(context.Context, Event) error { return nil })
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("expected UNAVAILABLE on closed bus, got %v", err)
	}
}

func TestParseKafkaBrokers(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"localhost:9092", []string{"localhost:9092"}},
		{"a:9092, b:9092 ,c:9092", []string{"a:9092", "b:9092", "c:9092"}},
	}

	for _, tt := range tests {
		got := ParseKafkaBrokers(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("ParseKafkaBrokers(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseKafkaBrokers(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestNewKafkaBus_Validation(t *testing.T) {
	if _, err := NewKafkaBus(KafkaConfig{}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for empty brokers, got %v", err)
	}

	_, err := NewKafkaBus(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for empty consumer group, got %v", err)
	}
}

func TestNewBus_Factory(t *testing.T) {
	b, err := NewBus(config.BusConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("NewBus(memory) failed: %v", err)
	}
	if _, ok := b.(*MemoryBus); !ok {
		t.Errorf("expected *MemoryBus, got %T", b)
	}
	b.Close()

	if _, err := NewBus(config.BusConfig{Type: "kafka"}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for kafka without brokers, got %v", err)
	}

	if _, err := NewBus(config.BusConfig{Type: "zeromq"}); !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for unknown type, got %v", err)
	}
}
