package query

// Read keys.
const (
	KeyQuestions       = "questions"
	KeyMe              = "auth/me"
	KeyBackupConfig    = "backup.config"
	KeyBackupFiles     = "backup.files"
	KeyCareers         = "catalog/careers"
	KeyUniversities    = "catalog/universities"
	KeyStats           = "stats"
	keyRecommendations = "recommendations"
	keyStudents        = "students/"
)

func KeyRecommendations(studentID string) string { return keyRecommendations + "/" + studentID }
func KeyAptitudes(studentID string) string       { return keyStudents + studentID + "/aptitudes" }
func KeyLastCareer(studentID string) string      { return keyStudents + studentID + "/lastCareer" }

// Mutation names.
const (
	MutationBackupConfigUpdate = "backup.config.update"
	MutationBackupManual       = "backup.manual"
	MutationBackupRestore      = "backup.restore"
	MutationAnswersSubmit      = "answers.submit"
	MutationCatalogWrite       = "catalog.write"
	MutationLogout             = "auth.logout"
	MutationDeactivate         = "auth.deactivate"
	MutationPasswordChange     = "auth.password.change"
)

// Rules maps a mutation to the key prefixes it invalidates.
type Rules map[string][]string

// KeysFor returns the prefixes invalidated by mutation; unknown mutations
// invalidate nothing.
func (r Rules) KeysFor(mutation string) []string {
	return r[mutation]
}

// DefaultRules is the invalidation table used by the client.
func DefaultRules() Rules {
	return Rules{
		MutationBackupConfigUpdate: {KeyBackupConfig},
		MutationBackupManual:       {KeyBackupFiles},
		MutationBackupRestore:      {"*"},
		MutationAnswersSubmit:      {keyRecommendations, keyStudents, KeyStats},
		MutationCatalogWrite:       {"catalog/", keyRecommendations},
		MutationLogout:             {"*"},
		MutationDeactivate:         {"*"},
		MutationPasswordChange:     {KeyMe},
	}
}
