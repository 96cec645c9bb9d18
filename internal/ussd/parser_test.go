package ussd

import (
	"reflect"
	"testing"
)

var serviceCode = []string{"710", "56789"}

func TestParseTextEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		if got := ParseText(text, serviceCode); len(got) != 0 {
			t.Fatalf("ParseText(%q) = %v, want empty", text, got)
		}
	}
}

func TestParseTextStripsServiceCode(t *testing.T) {
	got := ParseText("710*56789*1*2", serviceCode)
	want := []string{"1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseText = %v, want %v", got, want)
	}
}

func TestParseTextPrefixOnlyIsWelcomeState(t *testing.T) {
	if got := ParseText("710*56789", serviceCode); len(got) != 0 {
		t.Fatalf("prefix-only input should normalize to empty, got %v", got)
	}
}

func TestParseTextWithoutPrefix(t *testing.T) {
	got := ParseText("2*500*1234", serviceCode)
	want := []string{"2", "500", "1234"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseText = %v, want %v", got, want)
	}
}

func TestParseTextPreservesTokenContent(t *testing.T) {
	got := ParseText("1*1*Jane Doe*12345678", nil)
	want := []string{"1", "1", "Jane Doe", "12345678"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseText = %v, want %v", got, want)
	}
}

func TestParseTextPartialPrefixNotStripped(t *testing.T) {
	// A first token that merely resembles the prefix must survive.
	got := ParseText("710*1", serviceCode)
	want := []string{"710", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseText = %v, want %v", got, want)
	}
}
