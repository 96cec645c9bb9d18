package ussd

import "testing"

func TestResponseMarkers(t *testing.T) {
	cont := Continue("Enter your PIN")
	if cont != "CON Enter your PIN" {
		t.Fatalf("unexpected continuation: %q", cont)
	}
	if IsTerminal(cont) {
		t.Fatal("continuation reported as terminal")
	}

	end := End("Invalid PIN")
	if end != "END Invalid PIN" {
		t.Fatalf("unexpected terminal: %q", end)
	}
	if !IsTerminal(end) {
		t.Fatal("terminal not reported as terminal")
	}
}

func TestContinueJoinsLines(t *testing.T) {
	got := Continue("Manage accounts:", "1. A", "2. Create new account")
	want := "CON Manage accounts:\n1. A\n2. Create new account"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount("KES", 1500); got != "KES 1,500" {
		t.Fatalf("FormatAmount = %q, want %q", got, "KES 1,500")
	}
	if got := FormatAmount("KES", 42); got != "KES 42" {
		t.Fatalf("FormatAmount = %q, want %q", got, "KES 42")
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0743177132", "+254743177132"},
		{"254743177132", "+254743177132"},
		{"+254743177132", "+254743177132"},
		{" 0743 177 132 ", "+254743177132"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
