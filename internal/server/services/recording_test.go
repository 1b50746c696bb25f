package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server/analysis"
	"github.com/jagcoaching/speechcoach/internal/server/models"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/repomanager"
)

type fakePresigner struct {
	putErr, getErr error
	lastKey        string
}

func (f *fakePresigner) PresignPut(_ context.Context, key, _ string) (string, error) {
	f.lastKey = key
	if f.putErr != nil {
		return "", f.putErr
	}
	return "http://upload/" + key, nil
}

func (f *fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return "http://download/" + key, nil
}

type fakeQueue struct {
	err      error
	enqueued []string
}

func (f *fakeQueue) EnqueueAnalysis(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, id)
	return nil
}

func newRecordingService(queue AnalysisQueue) (*RecordingService, *fakePresigner, *repomanager.InMemoryRepositoryManager) {
	rm := repomanager.NewInMemoryRepositoryManager()
	p := &fakePresigner{}
	return NewRecordingService(rm, p, queue, logging.Nop{}), p, rm
}

func TestCreateUpload(t *testing.T) {
	ctx := context.Background()
	s, p, rm := newRecordingService(nil)

	up, err := s.CreateUpload(ctx, "u1", "talk.wav", "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, models.RecordingPendingUpload, up.Recording.Status)
	assert.Equal(t, "u1", up.Recording.UserID)
	assert.Equal(t, p.lastKey, up.Recording.StorageKey)
	assert.Equal(t, "http://upload/"+up.Recording.StorageKey, up.UploadURL)

	stored, err := rm.Recordings().GetByID(ctx, up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, "talk.wav", stored.Filename)
}

func TestCreateUpload_Validation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newRecordingService(nil)

	_, err := s.CreateUpload(ctx, "u1", "  ", "audio/wav")
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = s.CreateUpload(ctx, "u1", "notes.txt", "text/plain")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestCreateUpload_PresignFailure(t *testing.T) {
	ctx := context.Background()
	s, p, rm := newRecordingService(nil)
	p.putErr = errors.New("s3 down")

	_, err := s.CreateUpload(ctx, "u1", "talk.wav", "audio/wav")
	assert.ErrorIs(t, err, common.ErrorUnavailable)

	recs, err := rm.Recordings().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, recs, "nothing is stored when presigning fails")
}

func TestGetAndList_Ownership(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newRecordingService(nil)

	up, err := s.CreateUpload(ctx, "u1", "a.wav", "")
	require.NoError(t, err)
	_, err = s.CreateUpload(ctx, "u2", "b.wav", "")
	require.NoError(t, err)

	got, err := s.Get(ctx, "u1", up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, up.Recording.ID, got.ID)

	_, err = s.Get(ctx, "u2", up.Recording.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, up.Recording.ID, list[0].ID)
}

func TestRequestAnalysis(t *testing.T) {
	ctx := context.Background()
	q := &fakeQueue{}
	s, _, rm := newRecordingService(q)

	up, err := s.CreateUpload(ctx, "u1", "a.wav", "audio/wav")
	require.NoError(t, err)

	rec, err := s.RequestAnalysis(ctx, "u1", up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingQueued, rec.Status)
	assert.Equal(t, []string{up.Recording.ID}, q.enqueued)

	// a second request while queued does not enqueue twice
	_, err = s.RequestAnalysis(ctx, "u1", up.Recording.ID)
	require.NoError(t, err)
	assert.Len(t, q.enqueued, 1)

	stored, err := rm.Recordings().GetByID(ctx, up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingQueued, stored.Status)

	_, err = s.RequestAnalysis(ctx, "u2", up.Recording.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRequestAnalysis_NoQueue(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newRecordingService(nil)
	up, err := s.CreateUpload(ctx, "u1", "a.wav", "")
	require.NoError(t, err)

	_, err = s.RequestAnalysis(ctx, "u1", up.Recording.ID)
	assert.ErrorIs(t, err, common.ErrorUnavailable)
}

func TestRequestAnalysis_EnqueueFailureRestoresStatus(t *testing.T) {
	ctx := context.Background()
	q := &fakeQueue{err: errors.New("redis down")}
	s, _, rm := newRecordingService(q)
	up, err := s.CreateUpload(ctx, "u1", "a.wav", "")
	require.NoError(t, err)

	_, err = s.RequestAnalysis(ctx, "u1", up.Recording.ID)
	assert.ErrorIs(t, err, common.ErrorUnavailable)

	stored, err := rm.Recordings().GetByID(ctx, up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingPendingUpload, stored.Status)
}

func TestAudioURL(t *testing.T) {
	ctx := context.Background()
	s, p, _ := newRecordingService(nil)
	up, err := s.CreateUpload(ctx, "u1", "a.wav", "")
	require.NoError(t, err)

	rec, url, err := s.AudioURL(ctx, up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, up.Recording.ID, rec.ID)
	assert.Equal(t, "http://download/"+rec.StorageKey, url)

	p.getErr = errors.New("s3 down")
	_, _, err = s.AudioURL(ctx, up.Recording.ID)
	assert.ErrorIs(t, err, common.ErrorUnavailable)

	_, _, err = s.AudioURL(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCompleteAnalysis(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newRecordingService(&fakeQueue{})
	up, err := s.CreateUpload(ctx, "u1", "a.wav", "")
	require.NoError(t, err)

	report := &models.Report{Transcript: "hello world", WordsPerMinute: 120}
	require.NoError(t, s.CompleteAnalysis(ctx, up.Recording.ID, report, nil))

	rec, err := s.Get(ctx, "u1", up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingAnalyzed, rec.Status)
	require.NotNil(t, rec.Report)
	assert.Equal(t, "hello world", rec.Report.Transcript)

	transport := errors.New(`analyzer request: Post "http://10.1.2.3:9100/analyze": dial tcp 10.1.2.3:9100: connection refused`)
	require.NoError(t, s.CompleteAnalysis(ctx, up.Recording.ID, nil, transport))
	rec, err = s.Get(ctx, "u1", up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingFailed, rec.Status)
	assert.Equal(t, "analysis failed", rec.Error)

	rejected := fmt.Errorf("%w: engine returned 422: unsupported codec opus in /data/tmp/x.wav", analysis.ErrRejected)
	require.NoError(t, s.CompleteAnalysis(ctx, up.Recording.ID, nil, rejected))
	rec, err = s.Get(ctx, "u1", up.Recording.ID)
	require.NoError(t, err)
	assert.Equal(t, "recording could not be analyzed", rec.Error)

	assert.ErrorIs(t, s.CompleteAnalysis(ctx, "missing", nil, nil), common.ErrorNotFound)
}
