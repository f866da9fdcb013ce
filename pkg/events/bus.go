// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/sealbid/pkg/log"
)

const DefaultBuffer = 256

// Sink receives every published envelope
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env *Envelope) error
	Close() error
}

// Publisher accepts events from the auction registry
type Publisher interface {
	Publish(ev Event)
}

// Bus decouples the registry from slow sinks. Publish never blocks; when the
// buffer is full the envelope is dropped and counted.
type Bus struct {
	log   log.Logger
	sinks []Sink
	queue chan *Envelope
	now   func() time.Time

	mu      sync.Mutex
	dropped uint64
	closed  bool
}

// NewBus creates a bus with the given buffer size
func NewBus(logger log.Logger, buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		log:   logger,
		sinks: sinks,
		queue: make(chan *Envelope, buffer),
		now:   time.Now,
	}
}

// Publish implements Publisher
func (b *Bus) Publish(ev Event) {
	env, err := Wrap(ev, b.now())
	if err != nil {
		b.log.Error("failed to encode event", log.String("type", string(ev.EventType())), log.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- env:
	default:
		b.dropped++
		b.log.Warn("event bus full, dropping event",
			log.String("type", string(env.Type)),
			log.Uint64("auction", env.AuctionID),
		)
	}
}

// Dropped returns the number of events dropped on a full buffer
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Run delivers queued envelopes to every sink until ctx is done or the bus is
// closed. Should run in its own goroutine.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-b.queue:
			if !ok {
				return
			}
			b.deliver(ctx, env)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, env *Envelope) {
	for _, sink := range b.sinks {
		if err := sink.Deliver(ctx, env); err != nil {
			b.log.Warn("sink delivery failed",
				log.String("sink", sink.Name()),
				log.String("type", string(env.Type)),
				log.Error(err),
			)
		}
	}
}

// Close stops accepting events, drains what is queued and closes every sink
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for env := range b.queue {
		b.deliver(ctx, env)
	}

	var firstErr error
	for _, sink := range b.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogSink writes every event to a logger
type LogSink struct {
	log log.Logger
}

func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{log: logger}
}

func (*LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, env *Envelope) error {
	s.log.Info("event",
		log.String("id", env.ID),
		log.String("type", string(env.Type)),
		log.Uint64("auction", env.AuctionID),
		log.String("data", string(env.Data)),
	)
	return nil
}

func (*LogSink) Close() error { return nil }

// Recorder keeps every envelope in memory
type Recorder struct {
	mu   sync.Mutex
	envs []*Envelope
}

func (*Recorder) Name() string { return "recorder" }

func (r *Recorder) Deliver(_ context.Context, env *Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (*Recorder) Close() error { return nil }

// Envelopes returns a copy of the recorded envelopes
func (r *Recorder) Envelopes() []*Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Envelope(nil), r.envs...)
}
