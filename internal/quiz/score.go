package quiz

import (
	"math"

	"github.com/eduverse/typehub/internal/domain"
)

// Result is the outcome of grading one set of answers.
type Result struct {
	Correct int
	Total   int
	Score   int
}

// Grade counts answers matching each question's correct option. Unanswered
// questions count as wrong and answers to unknown questions are ignored.
// Score is the rounded percentage of correct answers, 0 for an empty quiz.
func Grade(questions []domain.Question, answers map[string]int) Result {
	r := Result{Total: len(questions)}
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && a == q.Correct {
			r.Correct++
		}
	}

	if r.Total > 0 {
		r.Score = int(math.Round(float64(r.Correct) / float64(r.Total) * 100))
	}

	return r
}
