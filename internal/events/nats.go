package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"deep-search/internal/logger"
)

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, log *slog.Logger) (*nats.Conn, error) {
	log = logger.OrDiscard(log)
	nc, err := nats.Connect(url,
		nats.Name("deep-search"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

// NewNATS publishes events as JSON on deepsearch.runs.<outcome>.
func NewNATS(log *slog.Logger, nc *nats.Conn) Publisher {
	return newNATS(log, nc)
}

func newNATS(log *slog.Logger, conn publisher) *natsPublisher {
	return &natsPublisher{log: logger.OrDiscard(log), conn: conn}
}

type natsPublisher struct {
	log  *slog.Logger
	conn publisher
}

func (p *natsPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.Outcome == "" {
		return errors.New("event outcome required")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(ev.Subject(), body); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Subject(), err)
	}
	p.log.Debug("run event published", "subject", ev.Subject(), "run_id", ev.RunID)
	return nil
}

func (p *natsPublisher) Close() error {
	return p.conn.Drain()
}
