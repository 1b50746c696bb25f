package models

import "time"

// RecordingStatus tracks a recording through upload and analysis.
type RecordingStatus string

const (
	RecordingPendingUpload RecordingStatus = "pending_upload"
	RecordingQueued        RecordingStatus = "queued"
	RecordingAnalyzed      RecordingStatus = "analyzed"
	RecordingFailed        RecordingStatus = "failed"
)

// Recording is an uploaded speech sample and, once analyzed, its report.
type Recording struct {
	ID          string          `bson:"_id"`
	UserID      string          `bson:"userId"`
	StorageKey  string          `bson:"storageKey"`
	Filename    string          `bson:"filename"`
	ContentType string          `bson:"contentType"`
	Status      RecordingStatus `bson:"status"`
	Report      *Report         `bson:"report,omitempty"`
	Error       string          `bson:"error,omitempty"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

// Report is the feedback produced by the speech analysis engine.
type Report struct {
	Transcript     string         `json:"transcript" bson:"transcript"`
	Sentiment      string         `json:"sentiment" bson:"sentiment"`
	FillerWords    map[string]int `json:"filler_words" bson:"fillerWords"`
	Emotion        string         `json:"emotion" bson:"emotion"`
	Keywords       []string       `json:"keywords" bson:"keywords"`
	Pauses         []Pause        `json:"pauses" bson:"pauses"`
	WordsPerMinute float64        `json:"words_per_minute" bson:"wordsPerMinute"`
	CorrectedText  string         `json:"corrected_text" bson:"correctedText"`
	Monotone       bool           `json:"monotone" bson:"monotone"`
	Clarity        float64        `json:"clarity" bson:"clarity"`
	Feedback       []string       `json:"feedback" bson:"feedback"`
}

// Pause is a silence longer than the engine's threshold, in seconds.
type Pause struct {
	Start    float64 `json:"start" bson:"start"`
	Duration float64 `json:"duration" bson:"duration"`
}
