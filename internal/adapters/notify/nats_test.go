package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.subject = subject
	f.data = data
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: streamName, Sequence: 1}, nil
}

func TestNATS_DeliverPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := newNATS(pub, "")

	sub := domain.Subscriber{ID: "sub-1", Address: "0xABCDEF"}
	rec := domain.NotificationRecord{
		ID: "n-1", BlockNumber: 7, Message: "Your free collateral is 400 USD", CreatedAt: time.Unix(100, 0).UTC(),
	}
	require.NoError(t, n.Deliver(context.Background(), sub, rec))

	assert.Equal(t, "freecollateral.notifications.0xabcdef", pub.subject)

	var msg natsMessage
	require.NoError(t, json.Unmarshal(pub.data, &msg))
	assert.Equal(t, "n-1", msg.ID)
	assert.Equal(t, "sub-1", msg.SubscriberID)
	assert.Equal(t, uint64(7), msg.BlockNumber)
	assert.Equal(t, "Your free collateral is 400 USD", msg.Notification)
}

func TestNATS_SubjectUsesSanitizedTarget(t *testing.T) {
	n := newNATS(&fakePublisher{}, "alerts.fc.")
	assert.Equal(t, "alerts.fc.team_a___x", n.Subject(domain.Subscriber{Target: "team.a.*.x"}))
}

func TestNATS_PublishError(t *testing.T) {
	boom := errors.New("no responders")
	n := newNATS(&fakePublisher{err: boom}, "x")

	err := n.Deliver(context.Background(), domain.Subscriber{Address: "0xabc"}, domain.NotificationRecord{ID: "1"})
	assert.ErrorIs(t, err, boom)
}
