package middleware

import (
	"CrowdGuard/pkg/i18n"

	"github.com/gin-gonic/gin"
)

const LangKey = "lang"

// LanguageMiddleware resolves the response language from ?lang= first, then the
// Accept-Language header, and stores it under LangKey.
func LanguageMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}
	return func(c *gin.Context) {
		lang := i18n.Match(c.Query("lang"), c.GetHeader("Accept-Language"), defaultLang)
		c.Set(LangKey, lang)
		c.Next()
	}
}

// Lang returns the language chosen by LanguageMiddleware, "en" when it did not run.
func Lang(c *gin.Context) string {
	if v := c.GetString(LangKey); v != "" {
		return v
	}
	return "en"
}
