package api

import (
	"fmt"

	"github.com/orienta/orienta/internal/models"
)

var seedQuestions = []models.Question{
	{ID: "q01", Dimension: "Engineering", Text: "I enjoy figuring out how machines and systems work."},
	{ID: "q02", Dimension: "Engineering", Text: "I would rather avoid problems that need a lot of math.", Reverse: true},
	{ID: "q03", Dimension: "Health", Text: "I like helping people take care of their health."},
	{ID: "q04", Dimension: "Health", Text: "Being around hospitals makes me uncomfortable.", Reverse: true},
	{ID: "q05", Dimension: "Business", Text: "I enjoy organizing projects and leading teams."},
	{ID: "q06", Dimension: "Business", Text: "I like thinking about how companies make money."},
	{ID: "q07", Dimension: "Arts", Text: "I express myself through drawing, music or writing."},
	{ID: "q08", Dimension: "Arts", Text: "I notice design details others overlook."},
	{ID: "q09", Dimension: "Science", Text: "I like running experiments to test an idea."},
	{ID: "q10", Dimension: "Science", Text: "Reading about new discoveries bores me.", Reverse: true},
	{ID: "q11", Dimension: "Social", Text: "I enjoy listening to and advising others."},
	{ID: "q12", Dimension: "Social", Text: "I care about how communities can improve."},
}

var seedUniversities = []models.University{
	{ID: "un-tec", Name: "National Technical University", City: "Lima", Link: "https://www.example.edu/tec"},
	{ID: "un-med", Name: "Institute of Health Sciences", City: "Arequipa", Link: "https://www.example.edu/health"},
	{ID: "un-hum", Name: "University of Arts and Humanities", City: "Cusco", Link: "https://www.example.edu/arts"},
}

var seedCareers = []models.Career{
	{ID: "c-sys", Name: "Systems Engineering", Dimension: "Engineering", UniversityID: "un-tec"},
	{ID: "c-civ", Name: "Civil Engineering", Dimension: "Engineering", UniversityID: "un-tec"},
	{ID: "c-med", Name: "Medicine", Dimension: "Health", UniversityID: "un-med"},
	{ID: "c-nur", Name: "Nursing", Dimension: "Health", UniversityID: "un-med"},
	{ID: "c-adm", Name: "Business Administration", Dimension: "Business", UniversityID: "un-tec"},
	{ID: "c-des", Name: "Graphic Design", Dimension: "Arts", UniversityID: "un-hum"},
	{ID: "c-mus", Name: "Music", Dimension: "Arts", UniversityID: "un-hum"},
	{ID: "c-bio", Name: "Biology", Dimension: "Science", UniversityID: "un-med"},
	{ID: "c-psy", Name: "Psychology", Dimension: "Social", UniversityID: "un-hum"},
	{ID: "c-edu", Name: "Education", Dimension: "Social", UniversityID: "un-hum"},
}

// Seed loads the default questionnaire and catalog into an empty store.
// It reports whether anything was written.
func Seed(store Store) (bool, error) {
	if len(store.ListQuestions()) > 0 {
		return false, nil
	}
	for i := range seedQuestions {
		if err := store.AddQuestion(&seedQuestions[i]); err != nil {
			return false, fmt.Errorf("seed question %s: %w", seedQuestions[i].ID, err)
		}
	}
	if len(store.ListUniversities()) == 0 {
		for i := range seedUniversities {
			if err := store.AddUniversity(&seedUniversities[i]); err != nil {
				return false, fmt.Errorf("seed university %s: %w", seedUniversities[i].ID, err)
			}
		}
	}
	if len(store.ListCareers()) == 0 {
		for i := range seedCareers {
			if err := store.AddCareer(&seedCareers[i]); err != nil {
				return false, fmt.Errorf("seed career %s: %w", seedCareers[i].ID, err)
			}
		}
	}
	return true, nil
}
