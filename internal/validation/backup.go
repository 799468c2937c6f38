// Package validation holds the field checks run before a backup config is
// sent to, or stored by, the server.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/orienta/orienta/internal/models"
)

const (
	MinRetention = 1
	MaxRetention = 365
)

// H:MM, HH:MM or HH:MM:SS; minutes and seconds always two digits.
var timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])(?::([0-5][0-9]))?$`)

// FieldErrors maps a JSON field name to an inline message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "invalid backup config: " + strings.Join(parts, "; ")
}

// NormalizeTime returns s as HH:MM:SS, or an error when s is not a valid
// time of day.
func NormalizeTime(s string) (string, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", fmt.Errorf("time %q must be HH:MM or HH:MM:SS", s)
	}
	hour := m[1]
	if len(hour) == 1 {
		hour = "0" + hour
	}
	sec := m[3]
	if sec == "" {
		sec = "00"
	}
	return hour + ":" + m[2] + ":" + sec, nil
}

// BackupConfig checks cfg and returns a copy with ExecutionTime normalized.
// The returned error is a FieldErrors when any field is rejected.
func BackupConfig(cfg models.BackupConfig) (models.BackupConfig, error) {
	errs := FieldErrors{}
	if !cfg.Frequency.Valid() {
		errs["frequency"] = fmt.Sprintf("must be one of %v", models.Frequencies)
	}
	if t, err := NormalizeTime(cfg.ExecutionTime); err != nil {
		errs["executionTime"] = err.Error()
	} else {
		cfg.ExecutionTime = t
	}
	if cfg.RetentionCount < MinRetention || cfg.RetentionCount > MaxRetention {
		errs["retentionCount"] = fmt.Sprintf("must be between %d and %d", MinRetention, MaxRetention)
	}
	if len(errs) > 0 {
		return cfg, errs
	}
	return cfg, nil
}
