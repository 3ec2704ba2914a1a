package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"zh", "zh"},
		{"ZH", "zh"},
		{"zh-CN", "zh"},
		{"zh-Hans", "zh"},
		{"zho", "zh"},
		{"chi", "zh"},
		{"chinese", "zh"},
		{"Mandarin", "zh"},
		{"en", "en"},
		{"en-US", "en"},
		{"eng", "en"},
		{"ger", "de"},
		{"ja", "ja"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.input)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, input := range []string{"not a language", "12"} {
		if _, err := Normalize(input); err == nil {
			t.Errorf("Normalize(%q) expected error", input)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("zh"); got != "Chinese" {
		t.Errorf("DisplayName(zh) = %q", got)
	}
	if got := DisplayName("en"); got != "English" {
		t.Errorf("DisplayName(en) = %q", got)
	}
	if got := DisplayName(""); got != "Unknown" {
		t.Errorf("DisplayName(empty) = %q", got)
	}
}
