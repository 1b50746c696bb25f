package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

// Recordings is the part of the recording service the worker needs.
type Recordings interface {
	AudioURL(ctx context.Context, id string) (*models.Recording, string, error)
	CompleteAnalysis(ctx context.Context, id string, report *Report, analysisErr error) error
}

// Worker wraps the asynq server processing analysis tasks.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	recordings Recordings
	analyzer   Analyzer
	log        logging.Logger
}

// NewWorker constructs a Worker with the given concurrency.
func NewWorker(redisOpt asynq.RedisConnOpt, recordings Recordings, analyzer Analyzer, log logging.Logger, concurrency int) *Worker {
	w := &Worker{
		recordings: recordings,
		analyzer:   analyzer,
		log:        log,
	}
	w.server = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		Logger:      asynqLogger{log: log},
	})
	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(TaskAnalyzeRecording, w.HandleAnalyzeRecording)
	return w
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

// HandleAnalyzeRecording fulfils the asynq.HandlerFunc contract.
func (w *Worker) HandleAnalyzeRecording(ctx context.Context, task *asynq.Task) error {
	var payload AnalyzeRecordingPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.RecordingID == "" {
		return fmt.Errorf("bad payload: %w", asynq.SkipRetry)
	}
	id := payload.RecordingID

	_, audioURL, err := w.recordings.AudioURL(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			w.log.Warn(ctx, "recording vanished before analysis", "recording_id", id)
			return fmt.Errorf("recording %s: %w", id, asynq.SkipRetry)
		}
		return err
	}

	report, err := w.analyzer.Analyze(ctx, audioURL)
	if err != nil {
		w.log.Error(ctx, "analysis failed", "recording_id", id, "error", err)
		if errors.Is(err, ErrRejected) || lastAttempt(ctx) {
			if cerr := w.recordings.CompleteAnalysis(ctx, id, nil, err); cerr != nil {
				return cerr
			}
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	return w.recordings.CompleteAnalysis(ctx, id, report, nil)
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	limit, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= limit
}

// asynqLogger routes asynq's own logging through logging.Logger.
type asynqLogger struct {
	log logging.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(context.Background(), fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(context.Background(), fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(context.Background(), fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(context.Background(), fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(context.Background(), fmt.Sprint(args...))
	os.Exit(1)
}
