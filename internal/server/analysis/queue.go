package analysis

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Queue submits analysis tasks to Redis.
type Queue struct {
	client *asynq.Client
}

func NewQueue(redisOpt asynq.RedisConnOpt) *Queue {
	return &Queue{client: asynq.NewClient(redisOpt)}
}

// EnqueueAnalysis schedules TaskAnalyzeRecording for recordingID.
func (q *Queue) EnqueueAnalysis(ctx context.Context, recordingID string) error {
	task, err := NewAnalyzeRecordingTask(recordingID)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskAnalyzeRecording, err)
	}
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
