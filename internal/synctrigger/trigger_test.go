package synctrigger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/santatracker/internal/logging"
)

type fakeConn struct {
	Conn

	mu        sync.Mutex
	cb        nats.MsgHandler
	subject   string
	published [][]byte
	subErr    error
	pubErr    error
}

func (f *fakeConn) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.subject, f.cb = subj, cb
	return nil, nil
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.subject = subj
	f.published = append(f.published, data)
	return nil
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error { return nil }

func (f *fakeConn) deliver(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	cb(&nats.Msg{Subject: f.subject, Data: data})
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestSubscriber_DropsRequestsAboveRate(t *testing.T) {
	s := NewSubscriber(&fakeConn{}, DefaultSubject, time.Hour, logging.NewNop())

	var got []Request
	h := func(ctx context.Context, req Request) { got = append(got, req) }
	ctx := context.Background()

	assert.True(t, s.handle(ctx, mustJSON(t, Request{ID: "1", Reason: "manual"}), h))
	assert.False(t, s.handle(ctx, mustJSON(t, Request{ID: "2"}), h))
	assert.False(t, s.handle(ctx, mustJSON(t, Request{ID: "3"}), h))

	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "manual", got[0].Reason)
}

func TestSubscriber_ZeroIntervalIsUnlimited(t *testing.T) {
	s := NewSubscriber(&fakeConn{}, DefaultSubject, 0, logging.NewNop())
	n := 0
	for i := 0; i < 10; i++ {
		s.handle(context.Background(), []byte(`{"reason":"x"}`), func(context.Context, Request) { n++ })
	}
	assert.Equal(t, 10, n)
}

func TestSubscriber_MalformedIsIgnored(t *testing.T) {
	s := NewSubscriber(&fakeConn{}, DefaultSubject, time.Hour, logging.NewNop())
	called := false
	assert.False(t, s.handle(context.Background(), []byte(`{`), func(context.Context, Request) { called = true }))
	assert.False(t, called)

	// a malformed message does not consume the budget
	assert.True(t, s.handle(context.Background(), []byte(`{}`), func(context.Context, Request) { called = true }))
	assert.True(t, called)
}

func TestSubscriber_StartDeliversMessages(t *testing.T) {
	conn := &fakeConn{}
	s := NewSubscriber(conn, "custom.sync", 0, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Request, 1)
	require.NoError(t, s.Start(ctx, func(ctx context.Context, req Request) { got <- req }))
	assert.Equal(t, "custom.sync", conn.subject)

	conn.deliver(mustJSON(t, Request{Language: "de", Force: true}))
	req := <-got
	assert.Equal(t, "de", req.Language)
	assert.True(t, req.Force)
}

func TestSubscriber_StartError(t *testing.T) {
	conn := &fakeConn{subErr: errors.New("no conn")}
	err := NewSubscriber(conn, DefaultSubject, 0, logging.NewNop()).Start(context.Background(), nil)
	require.ErrorContains(t, err, "failed to subscribe[santa.sync]")
}

func TestPublisher_StampsAndSends(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, DefaultSubject)

	sent, err := p.Publish(context.Background(), Request{Reason: "operator"})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.False(t, sent.SentAt.IsZero())

	require.Len(t, conn.published, 1)
	var decoded Request
	require.NoError(t, json.Unmarshal(conn.published[0], &decoded))
	assert.Equal(t, sent.ID, decoded.ID)
	assert.Equal(t, "operator", decoded.Reason)
	assert.Equal(t, DefaultSubject, conn.subject)
}

func TestPublisher_Error(t *testing.T) {
	conn := &fakeConn{pubErr: errors.New("closed")}
	_, err := NewPublisher(conn, DefaultSubject).Publish(context.Background(), Request{})
	require.ErrorContains(t, err, "failed to publish sync request")
}
