/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus onto NATS so that
// player and schedule events reach other nodes and external consumers.
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ambientfm/internal/events"
)

const subjectPrefix = "ambientfm.events."

// message is the wire envelope for events crossing node boundaries.
type message struct {
	NodeID    string           `json:"node_id"`
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
}

// NATSBridge mirrors local bus traffic onto NATS subjects and replays
// remote traffic into the local bus. When no NATS URL is configured the
// bridge is inert and the in-memory bus works alone.
type NATSBridge struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
	nodeID string

	mu   sync.Mutex
	subs []*nats.Subscription
	taps []tap
	wg   sync.WaitGroup
}

// tap records a local bus subscription so Close can tear it down.
type tap struct {
	eventType events.EventType
	sub       events.Subscriber
}

// NewNATSBridge connects to NATS and starts mirroring the given event types
// in both directions. An empty url returns a nil bridge, which is safe to
// Close.
func NewNATSBridge(url string, bus *events.Bus, types []events.EventType, logger zerolog.Logger) (*NATSBridge, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url,
		nats.Name("ambientfm"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	b := &NATSBridge{
		conn:   conn,
		bus:    bus,
		logger: logger.With().Str("component", "eventbus").Logger(),
		nodeID: uuid.NewString(),
	}

	for _, eventType := range types {
		if err := b.mirror(eventType); err != nil {
			b.Close()
			return nil, err
		}
	}

	b.logger.Info().Str("url", url).Str("node_id", b.nodeID).Msg("nats event bridge connected")
	return b, nil
}

// mirror wires one event type in both directions.
func (b *NATSBridge) mirror(eventType events.EventType) error {
	subject := subjectPrefix + string(eventType)

	// Remote to local.
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var env message
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			b.logger.Error().Err(err).Str("subject", subject).Msg("malformed event envelope")
			return
		}
		// Our own publishes come back on the subscription; drop them.
		if env.NodeID == b.nodeID {
			return
		}
		b.bus.Publish(env.EventType, env.Payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subject, err)
	}

	// Local to remote.
	local := b.bus.Subscribe(eventType)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.taps = append(b.taps, tap{eventType: eventType, sub: local})
	b.mu.Unlock()

	b.wg.Add(1)
	go b.forward(eventType, subject, local)
	return nil
}

func (b *NATSBridge) forward(eventType events.EventType, subject string, local events.Subscriber) {
	defer b.wg.Done()

	for payload := range local {
		env := message{
			NodeID:    b.nodeID,
			EventType: eventType,
			Payload:   payload,
			Timestamp: time.Now().UTC(),
		}
		data, err := json.Marshal(env)
		if err != nil {
			b.logger.Error().Err(err).Msg("marshaling event envelope")
			continue
		}
		if err := b.conn.Publish(subject, data); err != nil {
			b.logger.Error().Err(err).Str("subject", subject).Msg("publishing event")
		}
	}
}

// Close drains subscriptions and disconnects. Safe on a nil bridge.
func (b *NATSBridge) Close() {
	if b == nil {
		return
	}

	b.mu.Lock()
	subs := b.subs
	taps := b.taps
	b.subs = nil
	b.taps = nil
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	// Unsubscribing closes the channel, which ends the forward goroutine.
	for _, t := range taps {
		b.bus.Unsubscribe(t.eventType, t.sub)
	}

	b.wg.Wait()
	b.conn.Close()
	b.logger.Info().Msg("nats event bridge closed")
}
