package usecase

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/elliehq/issue-relay/internal/biz/domain"
)

// Redaction patterns, applied in order. Conservative: catches the
// recognizable shapes of secrets and personal data, not a full DLP pass.
var redactions = []struct {
	re          *regexp.Regexp
	placeholder string
}{
	{regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[CARD_NUMBER]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
	{regexp.MustCompile(`\+?\d{1,3}[-\s]?\(?\d{2,4}\)?[-\s]?\d{3}[-\s]?\d{2,4}[-\s]?\d{0,4}\b`), "[PHONE]"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[IP_ADDRESS]"},
	{regexp.MustCompile(`\b[A-Fa-f0-9]{8}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{4}-[A-Fa-f0-9]{12}\b`), "[UUID]"},
	{regexp.MustCompile(`\b(?:sk-|pk_|rk_)[A-Za-z0-9_-]+\b`), "[API_KEY]"},
	{regexp.MustCompile(`\beyJ[A-Za-z0-9+/=._-]+\b`), "[TOKEN]"},
	{regexp.MustCompile(`\b[A-Za-z0-9+/]{40,}={0,2}\b`), "[TOKEN]"},
}

// SanitizeText replaces recognizable sensitive spans with fixed
// placeholder tokens
func SanitizeText(text string) string {
	for _, r := range redactions {
		text = r.re.ReplaceAllString(text, r.placeholder)
	}
	return text
}

// AssemblerConfig contains assembler configuration
type AssemblerConfig struct {
	Anonymize bool
}

// Assembler builds sanitized, anonymized context bundles from buffer
// snapshots
type Assembler struct {
	config AssemblerConfig
	newID  func() string
	now    func() time.Time
}

// NewAssembler creates a context assembler
func NewAssembler(config AssemblerConfig) *Assembler {
	return &Assembler{
		config: config,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Assemble builds a bundle for one accepted trigger. Pseudonyms are
// deterministic within the bundle (same sender, same pseudonym) but
// reset for every bundle, so different bundles cannot be linked.
func (a *Assembler) Assemble(snapshot []domain.Message, requesterID, chatID, triggerMsgID string, stale bool) (*domain.ContextBundle, error) {
	if len(snapshot) == 0 {
		return nil, ErrEmptyContext
	}

	pseudonyms := make(map[string]string)
	alias := func(senderID, senderName string) string {
		if !a.config.Anonymize {
			if senderName != "" {
				return senderName
			}
			return senderID
		}
		if p, ok := pseudonyms[senderID]; ok {
			return p
		}
		p := fmt.Sprintf("User-%d", len(pseudonyms)+1)
		pseudonyms[senderID] = p
		return p
	}

	messages := make([]domain.BundleMessage, 0, len(snapshot))
	for _, m := range snapshot {
		messages = append(messages, domain.BundleMessage{
			Sender:    alias(m.SenderID, m.SenderName),
			Text:      SanitizeText(m.Text),
			Timestamp: m.CreatedAt,
		})
	}

	requester := requesterID
	if a.config.Anonymize {
		// The requester may not have a message in the snapshot; alias
		// assigns a pseudonym either way
		requester = alias(requesterID, "")
	}

	return &domain.ContextBundle{
		CorrelationID: a.newID(),
		RequesterID:   requesterID,
		Requester:     requester,
		OriginChatID:  chatID,
		TriggerMsgID:  triggerMsgID,
		Messages:      messages,
		StaleTrigger:  stale,
		AssembledAt:   a.now(),
	}, nil
}
