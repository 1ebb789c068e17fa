package quiz

import (
	"quiz-server/models"
)

// RollingWindow is the number of most recent answers the rolling accuracy
// is computed over.
const RollingWindow = 20

// ComputeStats derives progress figures from ws. Percentages are in [0, 100]
// and are zero when there is nothing to divide by.
func ComputeStats(ws models.WorkingSet) models.Stats {
	st := models.Stats{Total: len(ws), Subjects: []models.SubjectStats{}}
	bySubject := make(map[string]int)

	var answered models.WorkingSet
	for _, q := range ws {
		i, ok := bySubject[q.Subject]
		if !ok {
			i = len(st.Subjects)
			bySubject[q.Subject] = i
			st.Subjects = append(st.Subjects, models.SubjectStats{Subject: q.Subject})
		}
		st.Subjects[i].Total++
		if !q.Answered() {
			continue
		}
		answered = append(answered, q)
		st.Subjects[i].Answered++
		if q.Correct() {
			st.Subjects[i].Correct++
		}
	}

	st.Answered = len(answered)
	st.Correct = countCorrect(answered)
	st.AnsweredPercentage = percent(st.Answered, st.Total)
	st.TotalAccuracy = percent(st.Correct, st.Answered)

	recent := answered
	if len(recent) > RollingWindow {
		recent = recent[len(recent)-RollingWindow:]
	}
	st.RollingAccuracy = percent(countCorrect(recent), len(recent))
	return st
}

func countCorrect(ws models.WorkingSet) int {
	n := 0
	for _, q := range ws {
		if q.Correct() {
			n++
		}
	}
	return n
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
