// Package langcode normalizes the language labels providers report
// ("en", "eng", "en-US", "English") into ISO 639-1 codes.
package langcode

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Alternate names used by speech models that don't match the canonical
// English language name.
var aliases = map[string]string{
	"burmese":        "my",
	"cantonese":      "yue",
	"castilian":      "es",
	"flemish":        "nl",
	"haitian":        "ht",
	"haitian creole": "ht",
	"jw":             "jv",
	"letzeburgesch":  "lb",
	"mandarin":       "zh",
	"moldavian":      "ro",
	"myanmar":        "my",
	"odia":           "or",
	"oriya":          "or",
	"panjabi":        "pa",
	"pushto":         "ps",
	"sinhala":        "si",
	"sinhalese":      "si",
	"valencian":      "ca",
}

// Languages for which the writing system is reported alongside the code.
var indic = map[string]bool{
	"as": true, "bn": true, "gu": true, "hi": true, "kn": true,
	"ml": true, "mr": true, "ne": true, "or": true, "pa": true,
	"sa": true, "sd": true, "ta": true, "te": true, "ur": true,
}

var (
	namesOnce sync.Once
	names     map[string]string
)

func nameIndex() map[string]string {
	namesOnce.Do(func() {
		names = displayNames()
		for _, l := range lingua.AllLanguages() {
			names[strings.ToLower(l.String())] = strings.ToLower(l.IsoCode639_1().String())
		}
		for k, v := range aliases {
			names[k] = v
		}
	})
	return names
}

// displayNames indexes the English CLDR name of every two-letter base
// language ("nepali" -> "ne"). The first code to claim a name keeps it.
func displayNames() map[string]string {
	namer := display.English.Languages()
	out := make(map[string]string, 200)
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			base, err := language.ParseBase(string([]rune{a, b}))
			if err != nil {
				continue
			}
			code := base.String()
			name := strings.ToLower(namer.Name(base))
			if name == "" || name == code {
				continue
			}
			if _, taken := out[name]; !taken {
				out[name] = code
			}
		}
	}
	return out
}

// Normalize maps a provider's language label to a lowercase ISO 639-1 code
// (or the shortest ISO 639 code when no two-letter form exists). ok is false
// when the label is blank or unrecognized.
func Normalize(label string) (code string, ok bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return "", false
	}
	if c, found := nameIndex()[s]; found {
		return c, true
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil || tag == language.Und {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.String(), true
}

// NormalizeOr returns Normalize(label), or the trimmed label unchanged
// when it cannot be recognized.
func NormalizeOr(label string) string {
	if code, ok := Normalize(label); ok {
		return code
	}
	return strings.TrimSpace(label)
}

// Equal reports whether two labels name the same language.
func Equal(a, b string) bool {
	ca, okA := Normalize(a)
	cb, okB := Normalize(b)
	return okA && okB && ca == cb
}

// Script returns the English name of the writing system for Indic
// languages ("Devanagari" for hi) and "" for everything else.
func Script(code string) string {
	c, ok := Normalize(code)
	if !ok || !indic[c] {
		return ""
	}
	sc, conf := language.Make(c).Script()
	if conf == language.No {
		return ""
	}
	return display.English.Scripts().Name(sc)
}

// Name returns the English display name for a code, or the code itself.
func Name(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if n := display.English.Languages().Name(tag); n != "" {
		return n
	}
	return code
}
