package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/pkg/logger"
)

func TestKafka_PublishEncodesEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "staybook.booking" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "42" {
			return errors.New("unexpected key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		if e.Type != BookingCreated {
			return errors.New("unexpected type " + e.Type)
		}
		return nil
	})

	k := NewKafkaWithProducer(producer, "staybook")
	ctx := logger.WithRequestID(context.Background(), "req-1")

	require.NoError(t, k.Publish(ctx, New(BookingCreated, "42", map[string]int64{"booking_id": 42})))
	require.NoError(t, k.Close())
}

func TestKafka_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := NewKafkaWithProducer(producer, "")
	err := k.Publish(context.Background(), New(PaymentCompleted, "1", nil))

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, k.Close())
}

func TestKafka_Topic(t *testing.T) {
	k := NewKafkaWithProducer(nil, "prod")
	assert.Equal(t, "prod.payment", k.Topic(PaymentInvoiced))
	assert.Equal(t, "review", NewKafkaWithProducer(nil, "").Topic(ReviewDeleted))
}
