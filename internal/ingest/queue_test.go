package ingest

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestNewPublishing(t *testing.T) {
	at := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	msg := newPublishing([]byte(`{"plate":"AB-123"}`), at)

	assert.Equal(t, at, msg.Timestamp)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, `{"plate":"AB-123"}`, string(msg.Body))
}
