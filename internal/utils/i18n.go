package utils

// Server-side messages only; everything else is rendered by the client.

const DefaultLocale = "en"

var SupportedLocales = []string{"en", "es"}

var translations = map[string]map[string]string{
	"en": {
		"health.ok":             "ok",
		"error.unauthorized":    "sign in required",
		"error.forbidden":       "you are not allowed to do that",
		"error.not_found":       "not found",
		"error.internal":        "internal error",
		"password.reset.sent":   "if the account exists, a reset link has been sent",
		"password.reset.done":   "password updated",
		"account.deactivated":   "account deactivated",
		"backup.restore.done":   "backup restored",
		"catalog.career.delete": "career deleted",
	},
	"es": {
		"health.ok":             "ok",
		"error.unauthorized":    "debes iniciar sesión",
		"error.forbidden":       "no tienes permiso para hacer eso",
		"error.not_found":       "no encontrado",
		"error.internal":        "error interno",
		"password.reset.sent":   "si la cuenta existe, se envió un enlace de restablecimiento",
		"password.reset.done":   "contraseña actualizada",
		"account.deactivated":   "cuenta desactivada",
		"backup.restore.done":   "copia de seguridad restaurada",
		"catalog.career.delete": "carrera eliminada",
	},
}

// T returns the translated string for key in locale, falling back to
// English and then to the key itself.
func T(locale, key string) string {
	if v, ok := translations[locale][key]; ok {
		return v
	}
	if v, ok := translations[DefaultLocale][key]; ok {
		return v
	}
	return key
}
