package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestMultiSwallowsFailures(t *testing.T) {
	failing := &recorder{err: errors.New("broker down")}
	ok := &recorder{}

	err := Multi{failing, nil, ok, Nop{}}.Publish(context.Background(), New(TransformCompleted))
	require.NoError(t, err)
	assert.Len(t, failing.events, 1)
	assert.Len(t, ok.events, 1)
	assert.Equal(t, TransformCompleted, ok.events[0].Type)
	assert.NotZero(t, ok.events[0].Timestamp)
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisherRoutesByType(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch)

	e := New(TransformCompleted)
	e.ImageID = "img-1"
	e.Options = "?w=100"
	require.NoError(t, p.Publish(context.Background(), e))

	assert.Equal(t, Exchange, ch.exchange)
	assert.Equal(t, TransformCompleted, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)

	var got Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, e, got)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
