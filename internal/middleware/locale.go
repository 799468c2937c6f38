package middleware

import (
	"context"
	"net/http"

	"github.com/orienta/orienta/internal/utils"
)

type ctxKey int

const localeKey ctxKey = 1

// LocaleMiddleware picks the response language from ?lang= or
// Accept-Language.
func LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qLang := r.URL.Query().Get("lang")
		aLang := r.Header.Get("Accept-Language")
		locale := utils.DetermineLocale(qLang, aLang, utils.SupportedLocales, utils.DefaultLocale)
		ctx := context.WithValue(r.Context(), localeKey, locale)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func LocaleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(localeKey).(string); ok {
		return s
	}
	return utils.DefaultLocale
}
