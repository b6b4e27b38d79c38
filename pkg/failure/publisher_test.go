package failure

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestApplyDefaultsKeepsProvidedHost(t *testing.T) {
	original := hostname
	defer func() { hostname = original }()
	hostname = func() (string, error) { return "ignored-hostname", nil }

	msg := Message{Host: "explicit"}
	got := applyDefaults(msg)
	if got.Host != "explicit" {
		t.Fatalf("expected host to remain explicit, got %q", got.Host)
	}
}

func TestApplyDefaultsUsesHostnameWhenEmpty(t *testing.T) {
	original := hostname
	defer func() { hostname = original }()
	hostname = func() (string, error) { return "local-host", nil }

	got := applyDefaults(Message{})
	if got.Host != "local-host" {
		t.Fatalf("expected host to default to hostname, got %q", got.Host)
	}
}

func TestApplyDefaultsIgnoresHostnameErrors(t *testing.T) {
	original := hostname
	defer func() { hostname = original }()
	hostname = func() (string, error) { return "", errors.New("lookup failed") }

	got := applyDefaults(Message{})
	if got.Host != "" {
		t.Fatalf("expected empty host when lookup fails, got %q", got.Host)
	}
}

func TestApplyDefaultsFillsIDAndTime(t *testing.T) {
	original := newID
	defer func() { newID = original }()
	newID = func() string { return "id-1" }

	got := applyDefaults(Message{})
	if got.ID != "id-1" {
		t.Fatalf("expected generated id, got %q", got.ID)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to default to now")
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	kept := applyDefaults(Message{ID: "given", OccurredAt: at})
	if kept.ID != "given" || !kept.OccurredAt.Equal(at) {
		t.Fatalf("expected provided id and time to be kept, got %q %s", kept.ID, kept.OccurredAt)
	}
}

func TestFullSubject(t *testing.T) {
	tests := []struct {
		prefix, source, want string
	}{
		{"errors.", "Program.Throw", "errors.Program.Throw"},
		{"", "Program.Throw", "Program.Throw"},
		{"errors", "job *nightly*", "errors.job__nightly_"},
		{"errors", "a..b>", "errors.a._.b_"},
	}
	for _, tt := range tests {
		p := NewPublisher(nil, tt.prefix)
		if got := p.fullSubject(tt.source); got != tt.want {
			t.Fatalf("fullSubject(%q, %q) = %q, want %q", tt.prefix, tt.source, got, tt.want)
		}
	}
}

func TestCloneHeadersCarriesDeadline(t *testing.T) {
	deadline := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	h := cloneHeaders(ctx)
	if got := h.Get("Deadline"); got != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected deadline header %q", got)
	}
}
