package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Whisper accepts ISO 639-1 codes. The table covers the word forms and
// bibliographic ISO 639-2 codes operators commonly type; everything else is
// parsed as a BCP 47 tag.
var aliases = map[string]string{
	"english":   "en",
	"chinese":   "zh",
	"mandarin":  "zh",
	"cantonese": "yue",
	"japanese":  "ja",
	"korean":    "ko",
	"french":    "fr",
	"german":    "de",
	"spanish":   "es",
	"russian":   "ru",
	"chi":       "zh",
	"fre":       "fr",
	"ger":       "de",
	"dut":       "nl",
}

// Normalize converts a language code, tag, or English word form into the base
// language code Whisper expects (for example "zh-CN", "zho" and "chinese" all
// become "zh"). Empty input yields an empty string and no error.
func Normalize(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", nil
	}
	if mapped, ok := aliases[code]; ok {
		return mapped, nil
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", code, err)
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return "", fmt.Errorf("unrecognized language %q", code)
	}
	return base.String(), nil
}

// DisplayName returns the English name of a language code, or the upper-cased
// code when it cannot be resolved.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	normalized, err := Normalize(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	tag, err := xlanguage.Parse(normalized)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}
