package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Subjects and channels are "<prefix>.<auction id>.<type>", e.g.
// "sealbid.7.auction.ended", so subscribers can filter with wildcards.
func topic(prefix string, env *Envelope) string {
	return fmt.Sprintf("%s.%d.%s", prefix, env.AuctionID, env.Type)
}

// NATSPublisher is the subset of *nats.Conn used by NATSSink
type NATSPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes envelopes to NATS core subjects
type NATSSink struct {
	conn   NATSPublisher
	prefix string
	close  func()
}

// DialNATS connects to url and returns a sink publishing under prefix
func DialNATS(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("sealbid"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s := NewNATSSink(conn, prefix)
	s.close = conn.Close
	return s, nil
}

func NewNATSSink(conn NATSPublisher, prefix string) *NATSSink {
	return &NATSSink{conn: conn, prefix: prefix}
}

func (*NATSSink) Name() string { return "nats" }

func (s *NATSSink) Deliver(_ context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.conn.Publish(topic(s.prefix, env), data)
}

func (s *NATSSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// RedisSink publishes envelopes over Redis pub/sub
type RedisSink struct {
	client *redis.Client
	prefix string
}

// DialRedis connects to addr and checks the connection with PING
func DialRedis(addr, password string, db int, prefix string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisSink{client: client, prefix: prefix}, nil
}

func (*RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, topic(s.prefix, env), data).Err()
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
