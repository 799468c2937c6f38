package models

// Stats is the admin dashboard summary.
type Stats struct {
	Users            int           `json:"users"`
	Students         int           `json:"students"`
	Submissions      int           `json:"submissions"`
	AptitudeAverages []Aptitude    `json:"aptitudeAverages"`
	Reliability      []Reliability `json:"reliability"`
	TopCareers       []CareerCount `json:"topCareers"`
}

// Reliability is Cronbach's alpha for the items of one dimension.
type Reliability struct {
	Dimension string  `json:"dimension"`
	Alpha     float64 `json:"alpha"`
	N         int     `json:"n"`
}

type CareerCount struct {
	Career string `json:"career"`
	Count  int    `json:"count"`
}
