package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/domain"
)

func TestSanitizeText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"email", "contact me at dev@example.com please", "[EMAIL]"},
		{"card", "card 4111 1111 1111 1111 leaked", "[CARD_NUMBER]"},
		{"ssn", "ssn is 123-45-6789", "[SSN]"},
		{"ip", "host 192.168.1.20 is down", "[IP_ADDRESS]"},
		{"api key", "token sk-abc123DEF456 in logs", "[API_KEY]"},
		{"jwt", "auth header eyJhbGciOiJIUzI1NiJ9.payload.sig", "[TOKEN]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeText(tc.in)
			if !strings.Contains(got, tc.want) {
				t.Errorf("Expected %q in %q", tc.want, got)
			}
		})
	}
}

func TestSanitizePlainTextUntouched(t *testing.T) {
	in := "the deploy failed on the staging cluster again"
	if got := SanitizeText(in); got != in {
		t.Errorf("Expected plain text unchanged, got %q", got)
	}
}

func snapshotFixture() []domain.Message {
	now := time.Unix(20000, 0)
	return []domain.Message{
		{ChatID: "c1", MsgID: "m1", SenderID: "alice", SenderName: "Alice", Text: "the login page is broken", CreatedAt: now},
		{ChatID: "c1", MsgID: "m2", SenderID: "bob", SenderName: "Bob", Text: "seeing the same on my side", CreatedAt: now.Add(time.Minute)},
		{ChatID: "c1", MsgID: "m3", SenderID: "alice", SenderName: "Alice", Text: "started after the last deploy", CreatedAt: now.Add(2 * time.Minute)},
	}
}

func TestAssemblePseudonymsStableWithinBundle(t *testing.T) {
	a := NewAssembler(AssemblerConfig{Anonymize: true})

	bundle, err := a.Assemble(snapshotFixture(), "alice", "c1", "m2", false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if bundle.Messages[0].Sender != bundle.Messages[2].Sender {
		t.Errorf("Same sender got different pseudonyms: %s vs %s",
			bundle.Messages[0].Sender, bundle.Messages[2].Sender)
	}
	if bundle.Messages[0].Sender == bundle.Messages[1].Sender {
		t.Error("Different senders share a pseudonym")
	}
	if bundle.Messages[0].Sender == "Alice" || bundle.Messages[0].Sender == "alice" {
		t.Error("Raw sender identity leaked into anonymized bundle")
	}
	// The requester is alice; her pseudonym matches her messages
	if bundle.Requester != bundle.Messages[0].Sender {
		t.Errorf("Requester pseudonym %s does not match sender pseudonym %s",
			bundle.Requester, bundle.Messages[0].Sender)
	}
}

func TestAssemblePseudonymsResetPerBundle(t *testing.T) {
	a := NewAssembler(AssemblerConfig{Anonymize: true})

	first, _ := a.Assemble(snapshotFixture(), "bob", "c1", "m1", false)
	second, _ := a.Assemble(snapshotFixture()[1:], "bob", "c1", "m2", false)

	// In the second bundle bob appears first and takes the first slot
	if second.Messages[0].Sender != "User-1" {
		t.Errorf("Expected fresh pseudonym table per bundle, got %s", second.Messages[0].Sender)
	}
	if first.Messages[1].Sender != "User-2" {
		t.Errorf("Expected bob second in first bundle, got %s", first.Messages[1].Sender)
	}
}

func TestAssembleAnonymizationOff(t *testing.T) {
	a := NewAssembler(AssemblerConfig{Anonymize: false})

	bundle, err := a.Assemble(snapshotFixture(), "alice", "c1", "m2", false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if bundle.Messages[0].Sender != "Alice" {
		t.Errorf("Expected raw sender name, got %s", bundle.Messages[0].Sender)
	}
	if bundle.Requester != "alice" {
		t.Errorf("Expected raw requester identity, got %s", bundle.Requester)
	}
}

func TestAssembleEmptySnapshot(t *testing.T) {
	a := NewAssembler(AssemblerConfig{Anonymize: true})

	if _, err := a.Assemble(nil, "alice", "c1", "m1", false); err != ErrEmptyContext {
		t.Errorf("Expected ErrEmptyContext, got %v", err)
	}
}

func TestAssembleSanitizesAndFlagsStale(t *testing.T) {
	a := NewAssembler(AssemblerConfig{Anonymize: true})

	msgs := []domain.Message{
		{ChatID: "c1", MsgID: "m1", SenderID: "alice", Text: "mail me at ops@corp.io", CreatedAt: time.Now()},
	}
	bundle, err := a.Assemble(msgs, "alice", "c1", "gone", true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bundle.StaleTrigger {
		t.Error("Expected stale trigger flag")
	}
	if !strings.Contains(bundle.Messages[0].Text, "[EMAIL]") {
		t.Errorf("Expected redacted email, got %q", bundle.Messages[0].Text)
	}
	if bundle.CorrelationID == "" {
		t.Error("Expected a correlation id")
	}
}
