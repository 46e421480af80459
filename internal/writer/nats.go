package writer

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes each L2 view to "<prefix>.<product_id>", letting
// downstream consumers subscribe per-product instead of filtering a
// single firehose subject.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSSink dials url and returns a Sink publishing under prefix.
func NewNATSSink(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSSink{conn: conn, prefix: prefix}, nil
}

func (s *NATSSink) Write(productID string, payload []byte) error {
	return s.conn.Publish(fmt.Sprintf("%s.%s", s.prefix, productID), payload)
}

func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
