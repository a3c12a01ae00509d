// Package natsbridge connects a fabric.Bus/Consumer pair to a NATS
// subject: Subscriber republishes everything received on a subject onto
// a Bus[[]byte], and Publisher is a Consumer[[]byte] that forwards
// every pushed message to a subject. Grounded on the pack's
// go-server/pkg/nats/client.go (nats.Connect with reconnect/ping
// options and ConnectHandler/DisconnectErrHandler/ReconnectHandler/
// ErrorHandler event callbacks, conn.Subscribe/conn.Publish), adapted
// from that file's bespoke MetricsInterface/*log.Logger pair to this
// module's metrics and logging.Logger, and from its JSON-message
// assumption to the same opaque-[]byte stance internal/kafkabridge
// takes — subject payload framing is left to the caller.
package natsbridge

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/metrics"
)

// Config mirrors the pack's nats.Config fields, plus a dial Timeout the
// pack's client.go leaves at the library default.
type Config struct {
	URL             string
	Timeout         time.Duration
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectJitter time.Duration
	MaxPingsOut     int
	PingInterval    time.Duration
}

func (cfg Config) options(name string, logger logging.Logger) []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(cfg.ReconnectJitter, cfg.ReconnectJitter),
		nats.MaxPingsOutstanding(cfg.MaxPingsOut),
		nats.PingInterval(cfg.PingInterval),
		nats.ConnectHandler(func(c *nats.Conn) {
			logger.Access("natsbridge: connected", map[string]any{"name": name, "url": c.ConnectedUrl()})
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			if err != nil {
				logger.Warn("natsbridge: disconnected", map[string]any{"name": name, "error": err.Error()})
			} else {
				logger.Access("natsbridge: disconnected", map[string]any{"name": name})
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			metrics.BrokerReconnectsTotal.WithLabelValues(name).Inc()
			logger.Access("natsbridge: reconnected", map[string]any{"name": name, "url": c.ConnectedUrl()})
		}),
		nats.ErrorHandler(func(c *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("natsbridge: connection error", map[string]any{"name": name, "error": err.Error()})
		}),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(cfg.Timeout))
	}
	return opts
}

// Subscriber republishes every message received on a subject onto a
// fabric.Bus[[]byte].
type Subscriber struct {
	name   string
	conn   *nats.Conn
	sub    *nats.Subscription
	output *fabric.Bus[[]byte]
}

// NewSubscriber connects to cfg.URL and subscribes to subject.
func NewSubscriber(name, subject string, cfg Config, logger logging.Logger) (*Subscriber, error) {
	conn, err := nats.Connect(cfg.URL, cfg.options(name, logger)...)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: connect: %w", err)
	}

	s := &Subscriber{name: name, conn: conn, output: fabric.NewBus[[]byte](byteSliceCloner{})}
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		if s.output.Push(msg.Data) {
			metrics.BridgeMessagesTotal.WithLabelValues(name, "consumed").Inc()
		} else {
			metrics.BridgeMessagesTotal.WithLabelValues(name, "dropped").Inc()
		}
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natsbridge: subscribe %s: %w", subject, err)
	}
	s.sub = sub
	return s, nil
}

// Output is the bus every subject message is broadcast to.
func (s *Subscriber) Output() *fabric.Bus[[]byte] { return s.output }

// Close unsubscribes and closes the underlying connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.conn.Close()
}

// Publisher is a fabric.Consumer[[]byte] that forwards every pushed
// message to a NATS subject.
type Publisher struct {
	name    string
	subject string
	conn    *nats.Conn
}

// NewPublisher connects to cfg.URL for publishing to subject.
func NewPublisher(name, subject string, cfg Config, logger logging.Logger) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL, cfg.options(name, logger)...)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: connect: %w", err)
	}
	return &Publisher{name: name, subject: subject, conn: conn}, nil
}

// Push satisfies fabric.Consumer[[]byte]; it publishes msg and reports
// whether the publish was accepted by the client's internal buffer.
func (p *Publisher) Push(msg []byte) bool {
	if err := p.conn.Publish(p.subject, msg); err != nil {
		metrics.BridgeMessagesTotal.WithLabelValues(p.name, "dropped").Inc()
		return false
	}
	metrics.BridgeMessagesTotal.WithLabelValues(p.name, "consumed").Inc()
	return true
}

// Close closes the underlying connection.
func (p *Publisher) Close() { p.conn.Close() }

type byteSliceCloner struct{}

func (byteSliceCloner) Clone(msg []byte) []byte {
	out := make([]byte, len(msg))
	copy(out, msg)
	return out
}
