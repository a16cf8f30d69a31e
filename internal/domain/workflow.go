package domain

import "time"

// WorkflowStatus enumerates run lifecycle states.
type WorkflowStatus string

const (
	StatusIdle      WorkflowStatus = "idle"
	StatusRunning   WorkflowStatus = "running"
	StatusCompleted WorkflowStatus = "completed"
	StatusError     WorkflowStatus = "error"
)

// TotalSteps is the fixed number of pipeline steps per keyword.
const TotalSteps = 5

// Pipeline steps, in execution order.
const (
	StepSearch = iota + 1
	StepSelect
	StepGenerate
	StepUpload
	StepPublish
)

var stepLabels = map[int]string{
	StepSearch:   "Product search",
	StepSelect:   "Product selection",
	StepGenerate: "Content generation",
	StepUpload:   "Image upload",
	StepPublish:  "Publish",
}

// StepLabel returns the human-readable name of a pipeline step.
func StepLabel(step int) string {
	if label, ok := stepLabels[step]; ok {
		return label
	}
	return "Processing"
}

// Progress converts a step counter into a 0-100 percentage.
func Progress(step, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(step)/float64(total)*100 + 0.5)
}

// WorkflowState is an immutable snapshot of a run. Every transition builds
// a new value; holders must not mutate the slices it references.
type WorkflowState struct {
	Status      WorkflowStatus `json:"status"`
	CurrentStep int            `json:"currentStep"`
	TotalSteps  int            `json:"totalSteps"`
	Message     string         `json:"message"`
	Error       string         `json:"error,omitempty"`
	ErrorKind   ErrorKind      `json:"errorKind,omitempty"`
	Warning     string         `json:"warning,omitempty"`
	Products    []Product      `json:"products,omitempty"`
	Post        *BlogPost      `json:"blogPost,omitempty"`

	CurrentKeywordIndex int        `json:"currentKeywordIndex,omitempty"`
	TotalKeywords       int        `json:"totalKeywords,omitempty"`
	NextScheduledTime   *time.Time `json:"nextScheduledTime,omitempty"`
}

// InitialState is the idle snapshot every run starts from.
func InitialState() WorkflowState {
	return WorkflowState{
		Status:     StatusIdle,
		TotalSteps: TotalSteps,
		Message:    "Waiting...",
	}
}

// With returns a copy of s with fn applied, leaving s untouched.
func (s WorkflowState) With(fn func(*WorkflowState)) WorkflowState {
	next := s
	fn(&next)
	return next
}

// KeywordStatus tracks a single keyword inside a batch.
type KeywordStatus string

const (
	KeywordPending   KeywordStatus = "pending"
	KeywordWaiting   KeywordStatus = "waiting"
	KeywordRunning   KeywordStatus = "running"
	KeywordCompleted KeywordStatus = "completed"
	KeywordError     KeywordStatus = "error"
)

// Terminal reports whether the keyword reached a final status.
func (s KeywordStatus) Terminal() bool {
	return s == KeywordCompleted || s == KeywordError
}

// KeywordResult is one entry of a batch ledger.
type KeywordResult struct {
	Index         int             `json:"index"`
	Keyword       string          `json:"keyword"`
	Status        KeywordStatus   `json:"status"`
	ScheduledTime *time.Time      `json:"scheduledTime,omitempty"`
	StartedAt     *time.Time      `json:"startedAt,omitempty"`
	FinishedAt    *time.Time      `json:"finishedAt,omitempty"`
	Result        *WorkflowResult `json:"result,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Duration is the wall-clock time the keyword spent running.
func (k KeywordResult) Duration() time.Duration {
	if k.StartedAt == nil || k.FinishedAt == nil {
		return 0
	}
	return k.FinishedAt.Sub(*k.StartedAt)
}

// WorkflowResult is the outcome of one keyword pipeline.
type WorkflowResult struct {
	Success         bool             `json:"success"`
	Keyword         string           `json:"keyword"`
	Products        []Product        `json:"products,omitempty"`
	Post            *BlogPost        `json:"blogPost,omitempty"`
	PublishResponse *PublishResponse `json:"wordpressResponse,omitempty"`
	ScheduledDate   time.Time        `json:"scheduledDate,omitempty"`
	Upload          *UploadStats     `json:"upload,omitempty"`
	Warning         string           `json:"warning,omitempty"`
	Error           string           `json:"error,omitempty"`
	Err             *Error           `json:"-"`
	State           WorkflowState    `json:"-"`
}

// ScheduleSlot is one computed publish timestamp.
type ScheduleSlot struct {
	Date  time.Time `json:"date"`
	Index int       `json:"index"`
}
