package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
)

func TestBillingEventSerializerRegistersAllTypes(t *testing.T) {
	s := NewBillingEventSerializer()

	for _, eventType := range []string{
		billing.EventTypeOrderCreated,
		billing.EventTypeOrderPaid,
		billing.EventTypeOrderCancelled,
		billing.EventTypeTitleIssued,
		billing.EventTypeTitlePaid,
		billing.EventTypeTitleCanceled,
	} {
		assert.True(t, s.IsRegistered(eventType), eventType)
	}
}

func TestEventSerializerRoundTrip(t *testing.T) {
	s := NewBillingEventSerializer()

	event := &billing.TitleIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(billing.EventTypeTitleIssued, billing.AggregateTypePaymentTitle, uuid.New()),
		TitleID:         uuid.New(),
		OrderID:         uuid.New(),
		OrderNSU:        "BOL_1700000000_abc123",
		Mode:            billing.BoletoModeManual,
		AmountCents:     9000,
		DueDate:         time.Date(2026, 9, 4, 23, 59, 59, 0, time.UTC),
	}

	payload, err := s.Serialize(event)
	require.NoError(t, err)

	decoded, err := s.Deserialize(billing.EventTypeTitleIssued, payload)
	require.NoError(t, err)

	issued, ok := decoded.(*billing.TitleIssuedEvent)
	require.True(t, ok)
	assert.Equal(t, event.EventID(), issued.EventID())
	assert.Equal(t, event.TitleID, issued.TitleID)
	assert.Equal(t, event.OrderNSU, issued.OrderNSU)
	assert.Equal(t, event.Mode, issued.Mode)
	assert.Equal(t, event.AmountCents, issued.AmountCents)
	assert.True(t, event.DueDate.Equal(issued.DueDate))
}

func TestEventSerializerUnknownType(t *testing.T) {
	s := NewEventSerializer()

	_, err := s.Deserialize("SomethingElse", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializerRejectsMalformedPayload(t *testing.T) {
	s := NewBillingEventSerializer()

	_, err := s.Deserialize(billing.EventTypeOrderPaid, []byte(`{not json`))

	require.Error(t, err)
}
