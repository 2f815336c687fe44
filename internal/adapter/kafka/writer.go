package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/skybrief/avwx-risk/internal/domain"
)

// Writer produces completed risk assessments to a Kafka topic.
// It implements risk.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the assessment topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAssessment serializes one assessment and writes it keyed by the
// station set, so consumers can compact per route.
func (w *Writer) PublishAssessment(ctx context.Context, stations []string, assessment domain.RiskAssessment) error {
	msg, err := serializeToMessage(stations, assessment)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish assessment: %w", err)
	}
	w.logger.Debug("assessment published",
		"stations", stations, "overall_score", assessment.OverallScore)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RiskAssessment into a Kafka message.
func serializeToMessage(stations []string, assessment domain.RiskAssessment) (kafkago.Message, error) {
	data, err := json.Marshal(assessment)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strings.Join(stations, ",")),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "band", Value: []byte(assessment.Band.Name)},
			{Key: "computed_at", Value: []byte(assessment.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
