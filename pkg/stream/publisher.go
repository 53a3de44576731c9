package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sterilysense/roomview/pkg/roomview"
)

// DefaultTopic carries one Summary per simulation tick.
const DefaultTopic = "room.tiers"

// Summary is the per-tick tier report for one room.
type Summary struct {
	Room     string              `json:"room"`
	Tick     uint64              `json:"tick"`
	At       time.Time           `json:"at"`
	Metric   roomview.Metric     `json:"metric"`
	Counts   roomview.TierCounts `json:"counts"`
	Snapshot roomview.Snapshot   `json:"snapshot"`
	Entered  []string            `json:"entered,omitempty"`
}

// SummaryOf builds the report for the latest tick of a scene.
func SummaryOf(room string, scene roomview.Scene, entered []string) Summary {
	s := Summary{
		Room:    room,
		Tick:    scene.Tick,
		Metric:  scene.Camera.Metric,
		Counts:  scene.Counts,
		Entered: entered,
	}
	if n := len(scene.History); n > 0 {
		s.Snapshot = scene.History[n-1]
		s.At = s.Snapshot.At
	}
	return s
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes tier summaries to Kafka keyed by room, so a room's reports stay ordered on one
// partition.
type Publisher struct {
	Room string
	w    messageWriter
}

func newKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func NewPublisher(brokers []string, topic, room string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{Room: room, w: newKafkaWriter(brokers, topic)}
}

func (p *Publisher) Publish(ctx context.Context, s Summary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(s.Room), Value: b, Time: at}); err != nil {
		return fmt.Errorf("publishing tick %d: %w", s.Tick, err)
	}
	if len(s.Entered) > 0 {
		log.Printf("[KAFKA] Published tick %d for %s (%d zones entered high risk)", s.Tick, s.Room, len(s.Entered))
	}
	return nil
}

// PublishScene publishes the summary of the controller's latest tick.
func (p *Publisher) PublishScene(ctx context.Context, c *roomview.Controller, entered []string) error {
	scene, err := c.Scene()
	if err != nil {
		return err
	}
	return p.Publish(ctx, SummaryOf(p.Room, scene, entered))
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
