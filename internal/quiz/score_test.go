package quiz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/quiz"
)

func TestGrade(t *testing.T) {
	t.Parallel()

	questions := []domain.Question{
		{ID: "q1", Correct: 0},
		{ID: "q2", Correct: 2},
		{ID: "q3", Correct: 1},
	}

	tests := map[string]struct {
		questions []domain.Question
		answers   map[string]int
		want      quiz.Result
	}{
		"all correct": {
			questions: questions,
			answers:   map[string]int{"q1": 0, "q2": 2, "q3": 1},
			want:      quiz.Result{Correct: 3, Total: 3, Score: 100},
		},
		"two of three rounds to 67": {
			questions: questions,
			answers:   map[string]int{"q1": 0, "q2": 2, "q3": 0},
			want:      quiz.Result{Correct: 2, Total: 3, Score: 67},
		},
		"unanswered counts as wrong": {
			questions: questions,
			answers:   map[string]int{"q1": 0},
			want:      quiz.Result{Correct: 1, Total: 3, Score: 33},
		},
		"unknown questions ignored": {
			questions: questions,
			answers:   map[string]int{"q9": 0},
			want:      quiz.Result{Correct: 0, Total: 3, Score: 0},
		},
		"empty quiz": {
			answers: map[string]int{"q1": 0},
			want:    quiz.Result{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, test.want, quiz.Grade(test.questions, test.answers))
		})
	}
}
