package failure

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Publisher reports failure messages to NATS under a subject prefix.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

var (
	hostname = os.Hostname
	newID    = func() string { return uuid.NewString() }
)

func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	return &Publisher{
		nc:     nc,
		prefix: strings.TrimSuffix(prefix, "."),
	}
}

// Publish sends a failure to NATS using the configured prefix.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	msg = applyDefaults(msg)
	payload, err := msg.Marshal()
	if err != nil {
		return err
	}
	return p.nc.PublishMsg(&nats.Msg{
		Subject: p.fullSubject(msg.Source),
		Data:    payload,
		Header:  cloneHeaders(ctx),
	})
}

func (p *Publisher) fullSubject(source string) string {
	token := SubjectToken(source)
	if p.prefix == "" {
		return token
	}
	return fmt.Sprintf("%s.%s", p.prefix, token)
}

// SubjectToken maps a function name onto NATS subject tokens. Dots keep
// separating tokens; wildcards, whitespace and empty tokens are replaced.
func SubjectToken(source string) string {
	tokens := strings.Split(source, ".")
	for i, tok := range tokens {
		tok = strings.Map(func(r rune) rune {
			switch r {
			case '*', '>', ' ', '\t', '\r', '\n':
				return '_'
			}
			return r
		}, tok)
		if tok == "" {
			tok = "_"
		}
		tokens[i] = tok
	}
	return strings.Join(tokens, ".")
}

func applyDefaults(msg Message) Message {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	if msg.Host != "" {
		return msg
	}
	if host, err := hostname(); err == nil && host != "" {
		msg.Host = host
	}
	return msg
}

// cloneHeaders extracts trace-like metadata from context if available.
func cloneHeaders(ctx context.Context) nats.Header {
	headers := nats.Header{}
	if ctx == nil {
		return headers
	}
	if deadline, ok := ctx.Deadline(); ok {
		headers.Set("Deadline", deadline.UTC().Format(time.RFC3339Nano))
	}
	return headers
}
