// Package analysis runs recordings through the external speech analysis
// engine. Requests are queued with asynq and processed by Worker, which
// stores the resulting Report on the recording.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jagcoaching/speechcoach/internal/server/models"
)

// Report is the feedback produced for one recording.
type Report = models.Report

// ErrRejected is returned when the engine refuses a request outright.
// Retrying such a request will not help.
var ErrRejected = errors.New("analysis rejected")

// Analyzer turns a downloadable recording into a Report.
type Analyzer interface {
	Analyze(ctx context.Context, audioURL string) (*Report, error)
}

// HTTPAnalyzer calls an engine exposing POST {"audio_url": ...} -> Report.
type HTTPAnalyzer struct {
	url    string
	client *http.Client
}

func NewHTTPAnalyzer(url string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	AudioURL string `json:"audio_url"`
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, audioURL string) (*Report, error) {
	body, err := json.Marshal(analyzeRequest{AudioURL: audioURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("analyzer returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(msg))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("analyzer returned unexpected status %d", resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("%w: decoding report: %w", ErrRejected, err)
	}
	return &report, nil
}
