// Package synctrigger carries "sync the route now" requests over NATS.
// Operators publish requests; the tracker daemon subscribes and paces them
// with a rate limiter so a burst of requests costs at most one resync per
// interval.
package synctrigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/santatracker/internal/logging"
)

const DefaultSubject = "santa.sync"

type Request struct {
	ID       string    `json:"id"`
	Reason   string    `json:"reason"`
	Language string    `json:"language,omitempty"`
	Force    bool      `json:"force"`
	SentAt   time.Time `json:"sentAt"`
}

// Conn is the part of *nats.Conn used here.
type Conn interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("santatracker"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

type Handler func(ctx context.Context, req Request)

type Subscriber struct {
	conn    Conn
	subject string
	limiter *rate.Limiter
	logger  logging.Logger
}

// NewSubscriber accepts at most one request per minInterval; requests that
// arrive sooner are dropped.
func NewSubscriber(conn Conn, subject string, minInterval time.Duration, logger logging.Logger) *Subscriber {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Subscriber{
		conn:    conn,
		subject: subject,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("component", "synctrigger"),
	}
}

// Start subscribes and delivers accepted requests to handler on the NATS
// callback goroutine until ctx ends.
func (s *Subscriber) Start(ctx context.Context, handler Handler) error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		s.handle(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe[%s]: %w", s.subject, err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Debug(context.Background(), "unsubscribe failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "listening for sync requests", "subject", s.subject)
	return nil
}

// handle reports whether the request reached the handler.
func (s *Subscriber) handle(ctx context.Context, data []byte, handler Handler) bool {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Warn(ctx, "malformed sync request", "error", err)
		return false
	}

	if !s.limiter.Allow() {
		s.logger.Info(ctx, "sync request dropped", "id", req.ID, "reason", req.Reason)
		return false
	}

	s.logger.Info(ctx, "sync request accepted", "id", req.ID, "reason", req.Reason, "force", req.Force)
	handler(ctx, req)
	return true
}

type Publisher struct {
	conn    Conn
	subject string
}

func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// Publish stamps req with an id and send time when missing, sends it and
// waits for the server to acknowledge the flush.
func (p *Publisher) Publish(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SentAt.IsZero() {
		req.SentAt = time.Now().UTC()
	}

	data, err := json.Marshal(req)
	if err != nil {
		return req, fmt.Errorf("failed to marshal sync request: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return req, fmt.Errorf("failed to publish sync request: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return req, fmt.Errorf("failed to flush sync request: %w", err)
	}
	return req, nil
}
