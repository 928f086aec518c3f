package language

import "strings"

type entry struct {
	code2   string   // ISO 639-1
	code3   []string // ISO 639-2 terminology and bibliographic forms
	display string
	words   []string
}

var languages = []entry{
	{"en", []string{"eng"}, "English", []string{"english"}},
	{"es", []string{"spa"}, "Spanish", []string{"spanish", "español", "espanol"}},
	{"fr", []string{"fra", "fre"}, "French", []string{"french", "français", "francais"}},
	{"de", []string{"deu", "ger"}, "German", []string{"german", "deutsch"}},
	{"it", []string{"ita"}, "Italian", []string{"italian", "italiano"}},
	{"pt", []string{"por"}, "Portuguese", []string{"portuguese", "português", "portugues"}},
	{"ja", []string{"jpn"}, "Japanese", []string{"japanese"}},
	{"ko", []string{"kor"}, "Korean", []string{"korean"}},
	{"zh", []string{"zho", "chi"}, "Chinese", []string{"chinese", "mandarin"}},
	{"ru", []string{"rus"}, "Russian", []string{"russian"}},
	{"ar", []string{"ara"}, "Arabic", []string{"arabic"}},
	{"hi", []string{"hin"}, "Hindi", []string{"hindi"}},
	{"nl", []string{"nld", "dut"}, "Dutch", []string{"dutch", "nederlands"}},
	{"pl", []string{"pol"}, "Polish", []string{"polish", "polski"}},
	{"sv", []string{"swe"}, "Swedish", []string{"swedish", "svenska"}},
	{"da", []string{"dan"}, "Danish", []string{"danish", "dansk"}},
	{"no", []string{"nor", "nob", "nno"}, "Norwegian", []string{"norwegian", "norsk"}},
	{"fi", []string{"fin"}, "Finnish", []string{"finnish", "suomi"}},
	{"tr", []string{"tur"}, "Turkish", []string{"turkish"}},
	{"uk", []string{"ukr"}, "Ukrainian", []string{"ukrainian"}},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		for _, c := range e.code3 {
			m[c] = e
		}
		for _, w := range e.words {
			m[w] = e
		}
	}
	return m
}()

// normalize lowercases value and strips a region suffix ("en-US", "pt_BR").
func normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(value, "\u0000", "")))
	if i := strings.IndexAny(value, "-_"); i > 0 {
		value = value[:i]
	}
	return value
}

// ToISO2 converts a known code or language name to ISO 639-1. Unknown
// two-letter codes pass through; anything else yields "".
func ToISO2(value string) string {
	value = normalize(value)
	if value == "" {
		return ""
	}
	if e, ok := index[value]; ok {
		return e.code2
	}
	if len(value) == 2 {
		return value
	}
	return ""
}

// DisplayName returns a readable name, the uppercased code when unknown, or
// "Unknown" for empty input.
func DisplayName(value string) string {
	value = normalize(value)
	if value == "" {
		return "Unknown"
	}
	if e, ok := index[value]; ok {
		return e.display
	}
	return strings.ToUpper(value)
}

// FromTags returns the ISO 639-1 language recorded in container or stream
// metadata, or "" when none is present. "und" counts as absent.
func FromTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		value, ok := tags[key]
		if !ok || normalize(value) == "" || normalize(value) == "und" {
			continue
		}
		return ToISO2(value)
	}
	return ""
}
