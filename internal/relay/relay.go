// Package relay carries hub events between server processes over NATS.
package relay

import (
	"encoding/json"
	"fmt"
	"sync"

	"gallan_chat/pkg/logger"

	"github.com/nats-io/nats.go"
)

type Scope string

const (
	ScopeChat Scope = "chat"
	ScopeUser Scope = "user"
)

// Envelope is one hub event on the wire between nodes.
type Envelope struct {
	Node    string          `json:"node"`
	Scope   Scope           `json:"scope"`
	ChatID  int64           `json:"chat_id,omitempty"`
	UserID  int64           `json:"user_id,omitempty"`
	Exclude string          `json:"exclude,omitempty"`
	Event   json.RawMessage `json:"event"`
}

type NatsRelay struct {
	nc     *nats.Conn
	node   string
	prefix string
	log    logger.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

func Connect(url, prefix, node string, log logger.Logger) (*NatsRelay, error) {
	nc, err := nats.Connect(url,
		nats.Name("gallan-chat-"+node),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return New(nc, prefix, node, log), nil
}

func New(nc *nats.Conn, prefix, node string, log logger.Logger) *NatsRelay {
	return &NatsRelay{nc: nc, node: node, prefix: prefix, log: log}
}

func (r *NatsRelay) Node() string {
	return r.node
}

func (r *NatsRelay) subject(scope Scope) string {
	return fmt.Sprintf("%s.%s", r.prefix, scope)
}

// Publish stamps the envelope with this node and sends it. Delivery is best-effort.
func (r *NatsRelay) Publish(env Envelope) error {
	env.Node = r.node
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := r.nc.Publish(r.subject(env.Scope), data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.subject(env.Scope), err)
	}
	return nil
}

// Subscribe calls handler for envelopes published by other nodes.
func (r *NatsRelay) Subscribe(handler func(Envelope)) error {
	sub, err := r.nc.Subscribe(r.prefix+".*", func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			r.log.Warn("Dropping malformed relay envelope", "error", err, "subject", msg.Subject)
			return
		}
		if env.Node == r.node {
			return
		}
		handler(env)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s.*: %w", r.prefix, err)
	}

	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()

	r.log.Info("Relay subscribed", "subject", r.prefix+".*", "node", r.node)
	return nil
}

func (r *NatsRelay) Close() {
	r.mu.Lock()
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	r.mu.Unlock()
	r.nc.Close()
}
