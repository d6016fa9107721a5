package locale

// Pick returns the text matching the request language, defaulting to Bengali.
func Pick(language, english, bengali string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		if english != "" {
			return english
		}
		return bengali
	}
	if bengali != "" {
		return bengali
	}
	return english
}
