package domain

import "time"

// BundleMessage is a sanitized message inside a context bundle
type BundleMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextBundle is the sanitized conversation context assembled for one
// trigger. Immutable once assembled; consumed exactly once by the
// webhook dispatcher.
type ContextBundle struct {
	CorrelationID string
	RequesterID   string
	Requester     string // pseudonym when anonymization is on, else the raw identity
	OriginChatID  string
	TriggerMsgID  string
	Messages      []BundleMessage
	StaleTrigger  bool
	Analysis      string // optional pre-analysis summary, empty when disabled
	AssembledAt   time.Time
}

// DispatchStatus is the lifecycle state of one webhook dispatch
type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "pending"
	DispatchSucceeded DispatchStatus = "succeeded"
	DispatchFailed    DispatchStatus = "failed"
)

// FailureKind classifies terminal dispatch failures
type FailureKind string

const (
	FailureNone               FailureKind = ""
	FailureWebhookUnreachable FailureKind = "webhook_unreachable"
	FailureWebhookRejected    FailureKind = "webhook_rejected"
	FailureMalformedResponse  FailureKind = "malformed_response"
)

// DispatchOutcome is the terminal result of one dispatch
type DispatchOutcome struct {
	Status    DispatchStatus
	Failure   FailureKind
	TicketRef string // ticket reference when the service created one
	NoIssue   bool   // service analyzed the context and found no issue
	Message   string // human-readable detail from the service, may be empty
	Attempts  int
}

// DispatchRecord tracks one dispatch for the duration of its handling
type DispatchRecord struct {
	CorrelationID string
	RequesterID   string
	OriginChatID  string
	Status        DispatchStatus
	Attempts      int
	CreatedAt     time.Time
}
