package handler

import (
	"strings"

	"github.com/bongbari/internal/locale"
	"github.com/gin-gonic/gin"
)

const localeContextKey = "__request_language"

// LocaleMiddleware resolves the request language from ?lang and
// Accept-Language and advertises it for caches.
func (a *API) LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		language := resolveLanguage(c)
		c.Set(localeContextKey, language)
		c.Header("Content-Language", locale.PreferenceForLanguage(language).HTMLLang)
		appendVaryHeader(c, "Accept-Language")
		c.Next()
	}
}

// requestLanguage prefers an explicit language from the request body over
// the one resolved by the middleware.
func requestLanguage(c *gin.Context, explicit string) string {
	if normalized := locale.NormalizeLanguage(explicit); normalized != "" {
		return normalized
	}
	if cached, ok := c.Get(localeContextKey); ok {
		if language, ok := cached.(string); ok && language != "" {
			return language
		}
	}
	return resolveLanguage(c)
}

func resolveLanguage(c *gin.Context) string {
	if override := locale.NormalizeLanguage(c.Query("lang")); override != "" {
		return override
	}
	if fromHeader := locale.LanguageFromAcceptLanguage(c.GetHeader("Accept-Language")); fromHeader != "" {
		return fromHeader
	}
	return locale.LanguageBengali
}

func appendVaryHeader(c *gin.Context, values ...string) {
	existing := c.Writer.Header().Values("Vary")
	seen := make(map[string]struct{})
	var merged []string
	for _, line := range existing {
		for _, part := range strings.Split(line, ",") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, name)
		}
	}
	for _, name := range values {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, name)
	}
	c.Header("Vary", strings.Join(merged, ", "))
}
