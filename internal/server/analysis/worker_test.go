package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

func errorsIsRejected(err error) bool { return errors.Is(err, ErrRejected) }

type fakeRecordings struct {
	urlErr      error
	completeErr error
	completed   []completion
}

type completion struct {
	id     string
	report *Report
	err    error
}

func (f *fakeRecordings) AudioURL(_ context.Context, id string) (*models.Recording, string, error) {
	if f.urlErr != nil {
		return nil, "", f.urlErr
	}
	return &models.Recording{ID: id}, "http://s3/" + id, nil
}

func (f *fakeRecordings) CompleteAnalysis(_ context.Context, id string, report *Report, analysisErr error) error {
	f.completed = append(f.completed, completion{id, report, analysisErr})
	return f.completeErr
}

type fakeAnalyzer struct {
	report *Report
	err    error
	gotURL string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, audioURL string) (*Report, error) {
	f.gotURL = audioURL
	return f.report, f.err
}

func newTestWorker(recs Recordings, an Analyzer) *Worker {
	return &Worker{recordings: recs, analyzer: an, log: logging.Nop{}}
}

func mustTask(t *testing.T, id string) *asynq.Task {
	t.Helper()
	task, err := NewAnalyzeRecordingTask(id)
	require.NoError(t, err)
	return task
}

func TestHandleAnalyzeRecording_Success(t *testing.T) {
	recs := &fakeRecordings{}
	an := &fakeAnalyzer{report: &Report{Transcript: "hi"}}

	err := newTestWorker(recs, an).HandleAnalyzeRecording(context.Background(), mustTask(t, "r1"))
	require.NoError(t, err)
	assert.Equal(t, "http://s3/r1", an.gotURL)
	require.Len(t, recs.completed, 1)
	assert.Equal(t, "r1", recs.completed[0].id)
	assert.Equal(t, "hi", recs.completed[0].report.Transcript)
	assert.NoError(t, recs.completed[0].err)
}

func TestHandleAnalyzeRecording_BadPayload(t *testing.T) {
	w := newTestWorker(&fakeRecordings{}, &fakeAnalyzer{})

	err := w.HandleAnalyzeRecording(context.Background(), asynq.NewTask(TaskAnalyzeRecording, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = w.HandleAnalyzeRecording(context.Background(), asynq.NewTask(TaskAnalyzeRecording, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleAnalyzeRecording_MissingRecording(t *testing.T) {
	recs := &fakeRecordings{urlErr: common.ErrorNotFound}
	an := &fakeAnalyzer{}

	err := newTestWorker(recs, an).HandleAnalyzeRecording(context.Background(), mustTask(t, "r1"))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, an.gotURL)
}

func TestHandleAnalyzeRecording_PresignFailureRetries(t *testing.T) {
	recs := &fakeRecordings{urlErr: errors.New("s3 down")}

	err := newTestWorker(recs, &fakeAnalyzer{}).HandleAnalyzeRecording(context.Background(), mustTask(t, "r1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, recs.completed)
}

func TestHandleAnalyzeRecording_Rejected(t *testing.T) {
	recs := &fakeRecordings{}
	an := &fakeAnalyzer{err: ErrRejected}

	err := newTestWorker(recs, an).HandleAnalyzeRecording(context.Background(), mustTask(t, "r1"))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	require.Len(t, recs.completed, 1)
	assert.ErrorIs(t, recs.completed[0].err, ErrRejected)
	assert.Nil(t, recs.completed[0].report)
}

func TestHandleAnalyzeRecording_CompleteFailure(t *testing.T) {
	recs := &fakeRecordings{completeErr: errors.New("db down")}
	an := &fakeAnalyzer{report: &Report{}}

	err := newTestWorker(recs, an).HandleAnalyzeRecording(context.Background(), mustTask(t, "r1"))
	assert.EqualError(t, err, "db down")
}

func TestLastAttempt_WithoutTaskMetadata(t *testing.T) {
	assert.True(t, lastAttempt(context.Background()))
}
