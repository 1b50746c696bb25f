package analysis

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue analysis tasks are put on.
	QueueDefault = "default"
	// TaskAnalyzeRecording analyzes a single uploaded recording.
	TaskAnalyzeRecording = "recording:analyze"

	maxRetry    = 3
	taskTimeout = 5 * time.Minute
)

// AnalyzeRecordingPayload identifies the recording to analyze.
type AnalyzeRecordingPayload struct {
	RecordingID string `json:"recording_id"`
}

// NewAnalyzeRecordingTask constructs an asynq task.
func NewAnalyzeRecordingTask(recordingID string) (*asynq.Task, error) {
	data, err := json.Marshal(AnalyzeRecordingPayload{RecordingID: recordingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyzeRecording, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
	), nil
}
