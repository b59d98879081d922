package interactive

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmDefaultsOnEmptyInput(t *testing.T) {
	var out bytes.Buffer
	got, err := Confirm(strings.NewReader("\n"), &out, "proceed?", true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !got {
		t.Error("expected default true on empty answer")
	}
}

func TestConfirmAcceptsYesNoVariants(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"no\n", false},
	}
	for _, c := range cases {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(c.in), &out, "proceed?", true)
		if err != nil {
			t.Fatalf("confirm(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("confirm(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestConfirmFallsBackToDefaultOnEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := Confirm(strings.NewReader(""), &out, "proceed?", false)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got {
		t.Error("expected default false on EOF")
	}
}
