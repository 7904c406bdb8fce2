package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduverse/typehub/internal/challenge"
	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/lesson"
	"github.com/eduverse/typehub/internal/quiz"
)

func (a *API) listBadges(c *gin.Context) {
	ok(c, http.StatusOK, domain.Badges)
}

func (a *API) myBadges(c *gin.Context) {
	u, err := a.as.Me(c.Request.Context(), userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}

	badges := make([]domain.Badge, 0, len(u.Badges))
	for _, k := range u.Badges {
		if b, found := domain.LookupBadge(k); found {
			badges = append(badges, b)
		}
	}

	ok(c, http.StatusOK, badges)
}

func (a *API) listLessons(c *gin.Context) {
	lessons, err := a.les.List(c.Request.Context(), userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, lessons)
}

func (a *API) getLesson(c *gin.Context) {
	l, err := a.les.GetBySlug(c.Request.Context(), c.Param("lesson"), userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, l)
}

func (a *API) listLessonProgress(c *gin.Context) {
	progress, err := a.les.ListProgress(c.Request.Context(), userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, progress)
}

type updateProgressRequest struct {
	Status    string `json:"status" binding:"required,oneof=not_started in_progress completed"`
	Progress  int    `json:"progress" binding:"gte=0,lte=100"`
	TimeSpent int    `json:"timeSpent" binding:"gte=0"`
}

func (a *API) updateLessonProgress(c *gin.Context) {
	var req updateProgressRequest
	if !a.bind(c, &req) {
		return
	}

	p, err := a.les.UpdateProgress(c.Request.Context(), lesson.UpdateProgressRequest{
		UserID:    userID(c),
		LessonID:  c.Param("lesson"),
		Status:    domain.LessonStatus(req.Status),
		Progress:  req.Progress,
		TimeSpent: req.TimeSpent,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, p)
}

func (a *API) listQuizzes(c *gin.Context) {
	quizzes, err := a.qs.List(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, quizzes)
}

func (a *API) getQuiz(c *gin.Context) {
	q, err := a.qs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, q)
}

type submitQuizRequest struct {
	Answers map[string]int `json:"answers" binding:"required"`
}

func (a *API) submitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if !a.bind(c, &req) {
		return
	}

	attempt, err := a.qs.Submit(c.Request.Context(), quiz.SubmitRequest{
		UserID:  userID(c),
		QuizID:  c.Param("id"),
		Answers: req.Answers,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusCreated, attempt)
}

func (a *API) listQuizAttempts(c *gin.Context) {
	attempts, err := a.qs.Attempts(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, attempts)
}

func (a *API) listChallenges(c *gin.Context) {
	challenges, err := a.cs.List(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, challenges)
}

func (a *API) getChallenge(c *gin.Context) {
	ch, err := a.cs.GetBySlug(c.Request.Context(), c.Param("challenge"))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, ch)
}

type submitChallengeRequest struct {
	Output string `json:"output" binding:"required"`
}

func (a *API) submitChallenge(c *gin.Context) {
	var req submitChallengeRequest
	if !a.bind(c, &req) {
		return
	}

	attempt, err := a.cs.Submit(c.Request.Context(), challenge.SubmitRequest{
		UserID:      userID(c),
		ChallengeID: c.Param("challenge"),
		Output:      req.Output,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusCreated, attempt)
}

type issueCertificateRequest struct {
	LessonID string `json:"lessonId" binding:"required"`
}

func (a *API) issueCertificate(c *gin.Context) {
	var req issueCertificateRequest
	if !a.bind(c, &req) {
		return
	}

	cert, err := a.certs.Issue(c.Request.Context(), userID(c), req.LessonID)
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusCreated, cert)
}

func (a *API) listCertificates(c *gin.Context) {
	certs, err := a.certs.List(c.Request.Context(), userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, certs)
}

func (a *API) sharedCertificate(c *gin.Context) {
	cert, err := a.certs.Shared(c.Request.Context(), c.Param("token"))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, cert)
}
