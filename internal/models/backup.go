package models

import "time"

// BackupFrequency is how often automatic backups run.
type BackupFrequency string

const (
	FrequencyDaily   BackupFrequency = "Daily"
	FrequencyWeekly  BackupFrequency = "Weekly"
	FrequencyMonthly BackupFrequency = "Monthly"
	FrequencyYearly  BackupFrequency = "Yearly"
)

// Frequencies lists the accepted BackupFrequency values.
var Frequencies = []BackupFrequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly}

// Valid reports whether f is one of Frequencies.
func (f BackupFrequency) Valid() bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// BackupConfig is the admin-edited schedule and retention policy.
// ExecutionTime is always "HH:MM:SS" once validated.
type BackupConfig struct {
	Frequency      BackupFrequency `json:"frequency"`
	ExecutionTime  string          `json:"executionTime"`
	RetentionCount int             `json:"retentionCount"`
}

// DefaultBackupConfig is used until an admin saves one.
func DefaultBackupConfig() BackupConfig {
	return BackupConfig{Frequency: FrequencyDaily, ExecutionTime: "02:00:00", RetentionCount: 7}
}

// BackupFile describes one snapshot on the server.
type BackupFile struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
}

// RestoreRequest is the body of POST /api/v1/admin/backup/files.
type RestoreRequest struct {
	ID string `json:"id"`
}
