package models

import "time"

// JobStatus describes the transcription lifecycle of a job. Transitions only
// advance: pending -> completed or pending -> failed; terminal states never
// regress.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the transcription reached a final state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SummaryStatus tracks summarization independently of transcription.
type SummaryStatus string

const (
	SummaryNotStarted SummaryStatus = "not_started"
	SummaryPending    SummaryStatus = "pending"
	SummaryCompleted  SummaryStatus = "completed"
	SummaryFailed     SummaryStatus = "failed"
)

// Terminal reports whether summarization reached a final state.
func (s SummaryStatus) Terminal() bool {
	return s == SummaryCompleted || s == SummaryFailed
}

// Utterance is one speaker turn (or one transcribed segment when diarization
// is off, in which case Speaker is nil).
type Utterance struct {
	Speaker *string `json:"speaker"`
	Text    string  `json:"text"`
}

// Job is the authoritative record in the job store. AudioKey is the object
// storage reference and is stripped before the record leaves the service.
type Job struct {
	ID         string      `json:"task_id"`
	Status     JobStatus   `json:"status"`
	Utterances []Utterance `json:"utterances,omitempty"`
	Error      string      `json:"error,omitempty"`

	AudioKey string `json:"audio_key,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`

	Summary       string        `json:"summary,omitempty"`
	SummaryStatus SummaryStatus `json:"summary_status,omitempty"`
	SummaryError  string        `json:"summary_error,omitempty"`

	DiarizationEnabled bool `json:"diarization_enabled"`

	KnowledgeBaseReady      bool   `json:"knowledgebase_ready"`
	KnowledgeBaseCollection string `json:"knowledgebase_collection,omitempty"`
	KnowledgeBaseChunks     int    `json:"knowledgebase_chunks,omitempty"`
	KnowledgeBaseError      string `json:"knowledgebase_error,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Stripped returns a copy safe for external observers: the object storage
// reference never leaves the service.
func (j *Job) Stripped() *Job {
	out := *j
	out.AudioKey = ""
	return &out
}

// Transcript joins the utterances into one document, prefixing speaker labels
// when present.
func (j *Job) Transcript() string {
	var b []byte
	for i, u := range j.Utterances {
		if i > 0 {
			b = append(b, '\n')
		}
		if u.Speaker != nil && *u.Speaker != "" {
			b = append(b, ("Speaker " + *u.Speaker + ": ")...)
		}
		b = append(b, u.Text...)
	}
	return string(b)
}

// UploadedDocument records one supplementary document added to a session's
// knowledge base.
type UploadedDocument struct {
	FileName      string    `json:"file_name"`
	FileType      string    `json:"file_type"`
	ChunksCreated int       `json:"chunks_created"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// ChatSession ties a job to its knowledge-base collection.
type ChatSession struct {
	TaskID            string             `json:"task_id"`
	CollectionName    string             `json:"collection_name"`
	Initialized       bool               `json:"initialized"`
	TranscriptChunks  int                `json:"transcript_chunks"`
	UploadedDocuments []UploadedDocument `json:"uploaded_documents"`
	AutoInitialized   bool               `json:"auto_initialized,omitempty"`
}

// Chunk source kinds.
const (
	SourceTranscript = "transcript"
	SourceUploaded   = "uploaded"
)

// Chunk is one retrievable unit of text inside a collection, with enough
// metadata to reconstruct a citation.
type Chunk struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	Position   int       `json:"position"`

	SourceType     string `json:"source_type"`
	Speaker        string `json:"speaker,omitempty"`
	UtteranceIndex int    `json:"utterance_index,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	PageNumber     int    `json:"page_number,omitempty"`
	FileType       string `json:"file_type,omitempty"`
}

// Source describes where one retrieved chunk came from, for citation display.
type Source struct {
	Type           string `json:"type"`
	ContentPreview string `json:"content_preview"`
	Speaker        string `json:"speaker,omitempty"`
	UtteranceIndex *int   `json:"utterance_index,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	PageNumber     *int   `json:"page_number,omitempty"`
	FileType       string `json:"file_type,omitempty"`
}

// ChatResult is the structured answer returned by the retrieval engine.
// Failures are reported in-band: Success=false plus a readable message.
type ChatResult struct {
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	ContextUsed string   `json:"context_used"`
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
}

// Transcription is a completed job saved to history for browsing.
type Transcription struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"user_id"`
	TaskID              string      `json:"task_id"`
	Title               string      `json:"title"`
	OriginalFilename    string      `json:"original_filename"`
	FileSize            int64       `json:"file_size"`
	DurationSeconds     *int        `json:"duration_seconds,omitempty"`
	TranscriptionEngine string      `json:"transcription_engine"`
	HasDiarization      bool        `json:"has_diarization"`
	TranscriptText      string      `json:"transcript_text,omitempty"`
	Utterances          []Utterance `json:"utterances,omitempty"`
	HasSummary          bool        `json:"has_summary"`
	HasChat             bool        `json:"has_chat"`
	CreatedAt           time.Time   `json:"created_at"`
}

// Summary is a stored summary attached to a history transcription.
type Summary struct {
	ID              string    `json:"id"`
	TranscriptionID string    `json:"transcription_id"`
	SummaryText     string    `json:"summary_text"`
	SummaryType     string    `json:"summary_type"`
	CreatedAt       time.Time `json:"created_at"`
}

// ChatMessage is one stored turn of a knowledge-base conversation, attached
// to a history transcription.
type ChatMessage struct {
	ID              string    `json:"id"`
	TranscriptionID string    `json:"transcription_id"`
	Role            string    `json:"role"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
}
