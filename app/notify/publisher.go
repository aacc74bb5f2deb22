package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSubject = "opportunities.dataset.updated"
	publishTimeout = 5 * time.Second
)

// DatasetUpdated is the payload published after every successful merge.
type DatasetUpdated struct {
	Records     int    `json:"records"`
	GeneratedAt string `json:"generated_at"`
	Path        string `json:"path"`
	JSONLPath   string `json:"jsonl_path"`
}

type Notifier interface {
	DatasetUpdated(ctx context.Context, event DatasetUpdated) error
	Close()
}

var _ Notifier = (*Publisher)(nil)

type Publisher struct {
	nc      *nats.Conn
	subject string
}

func NewPublisher(url, subject string) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("opportunity-comb"),
		nats.Timeout(publishTimeout),
		nats.MaxReconnects(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	log.Debug().Str("url", nc.ConnectedUrl()).Str("subject", subject).Msg("Connected to NATS")

	return &Publisher{nc: nc, subject: subject}, nil
}

func (p *Publisher) DatasetUpdated(ctx context.Context, event DatasetUpdated) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.nc.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("failed to flush %s: %w", p.subject, err)
	}

	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Nop is used when no NATS URL is configured.
type Nop struct{}

func (Nop) DatasetUpdated(context.Context, DatasetUpdated) error { return nil }

func (Nop) Close() {}

// New returns a Publisher for url, or Nop when url is empty. A connection
// failure is logged and also degrades to Nop: notifications never block
// the pipeline.
func New(url, subject string) Notifier {
	if url == "" {
		return Nop{}
	}

	publisher, err := NewPublisher(url, subject)
	if err != nil {
		log.Warn().Err(err).Msg("Dataset notifications disabled")
		return Nop{}
	}
	return publisher
}
