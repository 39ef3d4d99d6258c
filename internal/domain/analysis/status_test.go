package analysis

import "testing"

func TestStatusTransitions(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusDraft, StatusProcessing},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusDraft, StatusCompleted},
		{StatusDraft, StatusFailed},
		{StatusCompleted, StatusProcessing},
		{StatusFailed, StatusProcessing},
		{StatusCompleted, StatusFailed},
		{StatusProcessing, StatusDraft},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatalf("completed and failed must be terminal")
	}
	if StatusDraft.Terminal() || StatusProcessing.Terminal() {
		t.Fatalf("draft and processing must not be terminal")
	}
}

func TestParsePersona(t *testing.T) {
	for _, p := range Personas() {
		parsed, err := ParsePersona(string(p))
		if err != nil || parsed != p {
			t.Fatalf("ParsePersona(%q) = %v, %v", p, parsed, err)
		}
	}
	if _, err := ParsePersona(" Mad_Scientist "); err != nil {
		t.Fatalf("ParsePersona should normalize case and whitespace: %v", err)
	}
	if _, err := ParsePersona("visionary"); err == nil {
		t.Fatalf("expected unknown persona to be rejected")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeSingle {
		t.Fatalf("empty mode should default to single, got %v, %v", m, err)
	}
	if m, err := ParseMode("MULTI"); err != nil || m != ModeMulti {
		t.Fatalf("ParseMode(MULTI) = %v, %v", m, err)
	}
	if _, err := ParseMode("triple"); err == nil {
		t.Fatalf("expected unknown mode to be rejected")
	}
}
