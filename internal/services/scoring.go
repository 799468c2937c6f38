package services

import "github.com/orienta/orienta/internal/models"

// ReverseScore flips a raw answer on a scale of the given number of points.
// Out-of-range values are clamped first.
func ReverseScore(raw, points int) int {
	if points < 2 {
		return raw
	}
	raw = max(1, min(raw, points))
	return points + 1 - raw
}

// AptitudeScore maps the mean of scored answers on a 1..points scale to 0..100.
func AptitudeScore(values []int, points int) float64 {
	if len(values) == 0 || points < 2 {
		return 0
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	mean := float64(sum) / float64(len(values))
	return (mean - 1) / float64(points-1) * 100
}

// CronbachAlpha computes internal consistency for rows of
// [respondent][item] scores using population variance. The result is
// clamped to [0,1]; ragged or degenerate input yields 0.
func CronbachAlpha(rows [][]float64) float64 {
	n := len(rows)
	if n == 0 {
		return 0
	}
	k := len(rows[0])
	if k < 2 {
		return 0
	}
	means := make([]float64, k)
	totals := make([]float64, n)
	for i, row := range rows {
		if len(row) != k {
			return 0
		}
		for j, v := range row {
			means[j] += v
			totals[i] += v
		}
	}
	var itemVarSum float64
	for j := range means {
		means[j] /= float64(n)
		var ss float64
		for i := range rows {
			d := rows[i][j] - means[j]
			ss += d * d
		}
		itemVarSum += ss / float64(n)
	}
	totalVar := variance(totals)
	if totalVar == 0 {
		return 0
	}
	kf := float64(k)
	alpha := kf / (kf - 1) * (1 - itemVarSum/totalVar)
	return max(0, min(alpha, 1))
}

func variance(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs))
}

// scoreAnswers reverse-scores flagged questions and groups values by dimension.
func scoreAnswers(questions map[string]*models.Question, answers []models.Answer) ([]AnswerRecord, map[string][]int) {
	records := make([]AnswerRecord, 0, len(answers))
	byDim := map[string][]int{}
	for _, a := range answers {
		q := questions[a.QuestionID]
		score := a.Value
		if q.Reverse {
			score = ReverseScore(a.Value, models.MaxAnswerValue)
		}
		records = append(records, AnswerRecord{
			QuestionID: q.ID,
			Dimension:  q.Dimension,
			RawValue:   a.Value,
			ScoreValue: score,
		})
		byDim[q.Dimension] = append(byDim[q.Dimension], score)
	}
	return records, byDim
}
