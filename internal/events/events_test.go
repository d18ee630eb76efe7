package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/smart-trolley/internal/domain/order"
)

// --- Mock implementations ---

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

// --- Helpers ---

func testOrder() *order.Order {
	return &order.Order{
		ID:               "o1",
		UserID:           "u1",
		Subtotal:         decimal.RequireFromString("130"),
		Tax:              decimal.RequireFromString("13.5"),
		Total:            decimal.RequireFromString("143.5"),
		PaymentReference: "UPI-1",
		CreatedAt:        time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Lines: []order.Line{
			{ProductID: "p1", Barcode: "8901", Quantity: 2, UnitPrice: decimal.RequireFromString("50")},
			{ProductID: "p2", Barcode: "8902", Quantity: 1, UnitPrice: decimal.RequireFromString("30")},
		},
	}
}

// --- Tests ---

func TestEncodeCommitted(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 1, 0, time.UTC)
	data := EncodeCommitted("e1", testOrder(), at)

	require.True(t, jx.Valid(data))
	assert.JSONEq(t, `{
		"event_id": "e1",
		"event_type": "order.committed",
		"timestamp": "2026-03-14T09:30:01Z",
		"payload": {
			"id": "o1",
			"user_id": "u1",
			"subtotal": "130.00",
			"tax": "13.50",
			"total": "143.50",
			"payment_reference": "UPI-1",
			"created_at": "2026-03-14T09:30:00Z",
			"items": [
				{"product_id": "p1", "barcode": "8901", "quantity": 2, "unit_price": "50.00"},
				{"product_id": "p2", "barcode": "8902", "quantity": 1, "unit_price": "30.00"}
			]
		}
	}`, string(data))
}

func TestKafkaPublisher(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{w: w, now: func() time.Time { return time.Unix(0, 0) }}

	require.NoError(t, p.PublishCommitted(context.Background(), testOrder()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "o1", string(w.msgs[0].Key))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte(TypeOrderCommitted)}}, w.msgs[0].Headers)

	w.err = errors.New("broker unavailable")
	err := p.PublishCommitted(context.Background(), testOrder())
	require.ErrorContains(t, err, "broker unavailable")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "")
	require.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "")
	require.NoError(t, err)
	w, ok := p.w.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
	require.NoError(t, p.Close())
}
