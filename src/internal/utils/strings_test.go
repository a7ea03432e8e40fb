package utils

import (
	"reflect"
	"testing"
)

func TestSplitFieldList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"ID,NAME,AMT", []string{"ID", "NAME", "AMT"}},
		{" ID , NAME ,, AMT ", []string{"ID", "NAME", "AMT"}},
		{"", []string{}},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		if got := SplitFieldList(tt.input); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("SplitFieldList(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":            "''",
		"2024-01-01":  "'2024-01-01'",
		"it's":        `'it'\''s'`,
		"a b; rm -rf": "'a b; rm -rf'",
	}

	for input, expected := range tests {
		if got := ShellQuote(input); got != expected {
			t.Errorf("ShellQuote(%q) = %s, want %s", input, got, expected)
		}
	}
}
