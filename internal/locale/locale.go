package locale

import "strings"

const (
	LanguageBengali = "bn"
	LanguageEnglish = "en"
)

type Preference struct {
	Language string
	Locale   string
	HTMLLang string
}

func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "bn") || trimmed == "bengali" || trimmed == "bangla" {
		return LanguageBengali
	}
	if strings.HasPrefix(trimmed, "en") || trimmed == "english" {
		return LanguageEnglish
	}
	return ""
}

// OrDefault normalizes raw and falls back to Bengali.
func OrDefault(raw string) string {
	if normalized := NormalizeLanguage(raw); normalized != "" {
		return normalized
	}
	return LanguageBengali
}

func LanguageFromAcceptLanguage(header string) string {
	trimmed := strings.ToLower(strings.TrimSpace(header))
	if trimmed == "" {
		return ""
	}
	for _, part := range strings.Split(trimmed, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if normalized := NormalizeLanguage(tag); normalized != "" {
			return normalized
		}
	}
	return ""
}

func PreferenceForLanguage(language string) Preference {
	if NormalizeLanguage(language) == LanguageEnglish {
		return Preference{Language: LanguageEnglish, Locale: "en_US", HTMLLang: "en-US"}
	}
	return Preference{Language: LanguageBengali, Locale: "bn_BD", HTMLLang: "bn-BD"}
}
