package models

import "time"

// Roles carried by a User.
const (
	RoleStudent     = "student"
	RoleInstitution = "institution"
	RoleAdmin       = "admin"
)

// User is the minimal identity shared between the API and its clients.
// Password hashes never leave the server.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
	Active bool   `json:"active"`
}

// IsAdmin reports whether the user may use the admin endpoints.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Question is one questionnaire item measuring a single dimension.
type Question struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Dimension string `json:"dimension"`
	Reverse   bool   `json:"reverse,omitempty"`
}

// Answer values are on a 1..5 ordinal scale.
const (
	MinAnswerValue = 1
	MaxAnswerValue = 5
)

type Answer struct {
	QuestionID string `json:"questionId"`
	Value      int    `json:"value"`
}

// SubmitAnswersRequest is the body of POST /answers.
type SubmitAnswersRequest struct {
	StudentID string   `json:"studentId"`
	Answers   []Answer `json:"answers"`
}

// SubmitAnswersResult is returned once a questionnaire was scored.
type SubmitAnswersResult struct {
	SubmissionID    string           `json:"submissionId"`
	Count           int              `json:"count"`
	Aptitudes       []Aptitude       `json:"aptitudes"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Aptitude is the affinity (0..100) of a student for a dimension.
type Aptitude struct {
	Dimension string  `json:"dimension"`
	Score     float64 `json:"score"`
}

type Recommendation struct {
	ID         string  `json:"id"`
	Career     string  `json:"career"`
	University string  `json:"university"`
	Link       string  `json:"link"`
	Dimension  string  `json:"dimension,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// LastCareer is the top recommendation of a student's latest submission.
type LastCareer struct {
	StudentID   string    `json:"studentId"`
	Career      string    `json:"career"`
	University  string    `json:"university"`
	Link        string    `json:"link"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type Career struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Dimension    string `json:"dimension"`
	UniversityID string `json:"universityId"`
	Link         string `json:"link,omitempty"`
}

type University struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
	Link string `json:"link,omitempty"`
}

// AuthResult is returned by every endpoint that opens a session.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
