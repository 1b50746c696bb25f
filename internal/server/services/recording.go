package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server/analysis"
	"github.com/jagcoaching/speechcoach/internal/server/models"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/repomanager"
)

// AnalysisQueue schedules background analysis of a recording.
type AnalysisQueue interface {
	EnqueueAnalysis(ctx context.Context, recordingID string) error
}

// RecordingService manages uploaded recordings and their analysis lifecycle:
// pending_upload -> queued -> analyzed | failed.
type RecordingService struct {
	repomanager repomanager.RepositoryManager
	presigner   Presigner
	queue       AnalysisQueue
	log         logging.Logger
	now         func() time.Time
}

// NewRecordingService wires the service. queue may be nil, in which case
// RequestAnalysis reports common.ErrorUnavailable.
func NewRecordingService(m repomanager.RepositoryManager, presigner Presigner, queue AnalysisQueue, log logging.Logger) *RecordingService {
	return &RecordingService{
		repomanager: m,
		presigner:   presigner,
		queue:       queue,
		log:         log,
		now:         time.Now,
	}
}

// Upload is a newly registered recording plus the URL the client PUTs to.
type Upload struct {
	Recording *models.Recording
	UploadURL string
}

// CreateUpload registers a recording for userID and presigns its upload.
func (s *RecordingService) CreateUpload(ctx context.Context, userID, filename, contentType string) (*Upload, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}
	if contentType != "" && !strings.HasPrefix(contentType, "audio/") && !strings.HasPrefix(contentType, "video/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", common.ErrorValidation, contentType)
	}

	now := s.now().UTC()
	rec := &models.Recording{
		ID:          uuid.NewString(),
		UserID:      userID,
		StorageKey:  NewStorageKey(userID, filename),
		Filename:    filename,
		ContentType: contentType,
		Status:      models.RecordingPendingUpload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	url, err := s.presigner.PresignPut(ctx, rec.StorageKey, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: error presigning upload: %w", common.ErrorUnavailable, err)
	}

	if err := s.repomanager.Recordings().Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: error creating recording: %w", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "recording created", "user_id", userID, "recording_id", rec.ID)
	return &Upload{Recording: rec, UploadURL: url}, nil
}

// List returns the user's recordings, newest first.
func (s *RecordingService) List(ctx context.Context, userID string) ([]*models.Recording, error) {
	recs, err := s.repomanager.Recordings().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: error listing recordings: %w", common.ErrorInternal, err)
	}
	return recs, nil
}

// Get returns a recording owned by userID. Recordings of other users are
// reported as common.ErrorNotFound.
func (s *RecordingService) Get(ctx context.Context, userID, id string) (*models.Recording, error) {
	rec, err := s.repomanager.Recordings().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: error searching recording: %w", common.ErrorInternal, err)
	}
	if rec.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

// RequestAnalysis marks the recording queued and schedules it. A recording
// that is already queued is returned as is.
func (s *RecordingService) RequestAnalysis(ctx context.Context, userID, id string) (*models.Recording, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("%w: analysis queue is not configured", common.ErrorUnavailable)
	}

	rec, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.RecordingQueued {
		return rec, nil
	}

	previous := *rec
	rec.Status = models.RecordingQueued
	rec.Error = ""
	rec.UpdatedAt = s.now().UTC()
	if err := s.repomanager.Recordings().Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: error updating recording: %w", common.ErrorInternal, err)
	}

	if err := s.queue.EnqueueAnalysis(ctx, rec.ID); err != nil {
		if rerr := s.repomanager.Recordings().Update(ctx, &previous); rerr != nil {
			s.log.Error(ctx, "error restoring recording status", "recording_id", rec.ID, "error", rerr)
		}
		return nil, fmt.Errorf("%w: error enqueueing analysis: %w", common.ErrorUnavailable, err)
	}

	s.log.Info(ctx, "analysis requested", "user_id", userID, "recording_id", rec.ID)
	return rec, nil
}

// AudioURL presigns a download of the recording for the analysis engine.
func (s *RecordingService) AudioURL(ctx context.Context, id string) (*models.Recording, string, error) {
	rec, err := s.repomanager.Recordings().GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	url, err := s.presigner.PresignGet(ctx, rec.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("%w: error presigning download: %w", common.ErrorUnavailable, err)
	}
	return rec, url, nil
}

// Failure reasons shown to the owner. Engine and transport details stay in
// the logs.
const (
	analysisFailedReason   = "analysis failed"
	analysisRejectedReason = "recording could not be analyzed"
)

// CompleteAnalysis stores the outcome of an analysis run. A non-nil
// analysisErr marks the recording failed.
func (s *RecordingService) CompleteAnalysis(ctx context.Context, id string, report *models.Report, analysisErr error) error {
	rec, err := s.repomanager.Recordings().GetByID(ctx, id)
	if err != nil {
		return err
	}

	rec.UpdatedAt = s.now().UTC()
	if analysisErr != nil {
		rec.Status = models.RecordingFailed
		rec.Error = analysisFailedReason
		if errors.Is(analysisErr, analysis.ErrRejected) {
			rec.Error = analysisRejectedReason
		}
		s.log.Warn(ctx, "analysis failed", "recording_id", id, "error", analysisErr)
	} else {
		rec.Status = models.RecordingAnalyzed
		rec.Report = report
		rec.Error = ""
	}

	if err := s.repomanager.Recordings().Update(ctx, rec); err != nil {
		return fmt.Errorf("error updating recording: %w", err)
	}
	s.log.Info(ctx, "analysis completed", "recording_id", id, "status", rec.Status)
	return nil
}
