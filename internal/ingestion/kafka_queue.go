package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/intelligencedev/ragserve/internal/chunking"
	"github.com/intelligencedev/ragserve/internal/domain"
	"github.com/intelligencedev/ragserve/internal/embedding"
	"github.com/intelligencedev/ragserve/internal/extract"
	"github.com/segmentio/kafka-go"
)

// JobQueue hands a submitted job's raw bytes to whatever runs Orchestrator.Run,
// decoupling "accept the upload" from "process it". The default HTTP path
// runs Orchestrator.Run directly in a goroutine; KafkaJobQueue is the
// alternate, out-of-process path for deployments that want ingestion work
// fanned out across worker processes.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID domain.ID, filename string, data []byte) error
}

// jobMessage is the wire shape of one queued ingestion job.
type jobMessage struct {
	JobID    domain.ID `json:"job_id"`
	Filename string    `json:"filename"`
	Data     []byte    `json:"data"`
}

// KafkaJobQueue publishes submitted jobs to a topic for out-of-process
// workers running StartKafkaConsumer, mirroring the teacher's
// orchestrator/kafka.go producer/consumer split.
type KafkaJobQueue struct {
	writer *kafka.Writer
}

func NewKafkaJobQueue(brokers []string, topic string) *KafkaJobQueue {
	return &KafkaJobQueue{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (q *KafkaJobQueue) Enqueue(ctx context.Context, jobID domain.ID, filename string, data []byte) error {
	payload, err := json.Marshal(jobMessage{JobID: jobID, Filename: filename, Data: data})
	if err != nil {
		return fmt.Errorf("marshal ingestion job message: %w", err)
	}
	return q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(jobID.String()),
		Value: payload,
	})
}

func (q *KafkaJobQueue) Close() error { return q.writer.Close() }

// StartKafkaConsumer reads queued jobs from brokers/topic and runs each one
// through o.Run with the default chunking/embedding config, committing only
// after the run completes (success or terminal failure are both committed;
// the job's own status record carries the outcome).
func StartKafkaConsumer(ctx context.Context, brokers []string, groupID, topic string, o *Orchestrator, extractOpts extract.Options, chunkCfg chunking.Config, embedCfg embedding.Config) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			o.Log.WithError(err).Warn("kafka_ingestion_fetch_failed")
			continue
		}

		var job jobMessage
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			o.Log.WithError(err).Error("kafka_ingestion_message_malformed")
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		o.Run(ctx, job.JobID, job.Filename, job.Data, extractOpts, chunkCfg, embedCfg)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			o.Log.WithError(err).Warn("kafka_ingestion_commit_failed")
		}
	}
}
