// Package supervisor implements the bidirectional event/response protocol
// between the engine and an external operator process (a CLI or a web
// UI): a typed event channel engine→operator, a typed response channel
// operator→engine, and a stdio-framed length-prefixed JSON transport for
// out-of-process operators.
package supervisor

import (
	"github.com/google/uuid"

	"github.com/txtxlabs/txtx/internal/value"
)

// EventKind enumerates the engine-emitted event tags (§4.8).
type EventKind string

const (
	EventProgress         EventKind = "progress"
	EventRequestInput      EventKind = "request_input"
	EventRequestReview     EventKind = "request_review"
	EventRequestSignature  EventKind = "request_signature"
	EventDiagnostic        EventKind = "diagnostic"
	EventCompleted         EventKind = "completed"
	EventFailed            EventKind = "failed"
)

// Severity mirrors pkg/errors.Severity for wire purposes without importing
// the errors package's richer Diagnostic type.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one engine→operator message. Exactly the fields relevant to
// Kind are populated; this mirrors the tagged-union shape used throughout
// the engine (internal/expr.Expr, internal/value.Value) rather than one
// interface type per event kind, keeping (de)serialization to a single
// struct.
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	Instance string    `json:"instance,omitempty"`

	// progress
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message,omitempty"`

	// request_input
	Field        string      `json:"field,omitempty"`
	Prompt       string      `json:"prompt,omitempty"`
	InputType    string      `json:"input_type,omitempty"`
	DefaultValue *value.Value `json:"default_value,omitempty"`

	// request_review
	ProposedAction string `json:"proposed_action,omitempty"`
	Diff           string `json:"diff,omitempty"`

	// request_signature
	Signer         string `json:"signer,omitempty"`
	Payload        []byte `json:"payload,omitempty"`
	Interpretation string `json:"interpretation,omitempty"`

	// diagnostic / failed
	Severity Severity `json:"severity,omitempty"`

	// completed
	Outputs map[string]value.Value `json:"outputs,omitempty"`
}

// NewEvent builds an event of kind needing a fresh correlation ID.
func NewEvent(kind EventKind, instance string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Instance: instance}
}

// ResponseKind enumerates operator-initiated messages: replies to a
// request_* event, plus the unsolicited control events (§4.8).
type ResponseKind string

const (
	ResponseValue     ResponseKind = "value"
	ResponseSkip      ResponseKind = "skip"
	ResponseCancel    ResponseKind = "cancel"
	ResponseApprove   ResponseKind = "approve"
	ResponseReject    ResponseKind = "reject"
	ResponseSignature ResponseKind = "signature"
	ResponsePause     ResponseKind = "pause"
	ResponseResume    ResponseKind = "resume"
	ResponseRewind    ResponseKind = "rewind"
)

// Response is one operator→engine message. ID echoes the Event.ID it
// answers; it is empty for the unsolicited control kinds (cancel, pause,
// resume, rewind).
type Response struct {
	ID   string       `json:"id,omitempty"`
	Kind ResponseKind `json:"kind"`

	Value     value.Value `json:"value,omitempty"`
	Signature []byte      `json:"signature,omitempty"`
	RewindTo  uint64      `json:"rewind_to,omitempty"`
}
