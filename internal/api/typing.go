package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/typing"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type submitResultRequest struct {
	WPM        *int     `json:"wpm" binding:"required,gte=0"`
	Accuracy   *float64 `json:"accuracy" binding:"required,gte=0,lte=100"`
	Duration   *int     `json:"duration" binding:"required,gte=1"`
	Characters int      `json:"characters" binding:"gte=0"`
	Errors     int      `json:"errors" binding:"gte=0"`
	Mode       string   `json:"mode" binding:"max=32"`
	Language   string   `json:"language" binding:"max=32"`
}

func (a *API) submitTypingResult(c *gin.Context) {
	a.submitResult(c, domain.TestKindTyping)
}

func (a *API) submitCodeTypingResult(c *gin.Context) {
	a.submitResult(c, domain.TestKindCode)
}

func (a *API) submitResult(c *gin.Context, kind domain.TestKind) {
	var req submitResultRequest
	if !a.bind(c, &req) {
		return
	}

	tt, err := a.ts.SubmitResult(c.Request.Context(), typing.SubmitResultRequest{
		UserID:     userID(c),
		Kind:       kind,
		WPM:        *req.WPM,
		Accuracy:   *req.Accuracy,
		Duration:   *req.Duration,
		Characters: req.Characters,
		Errors:     req.Errors,
		Mode:       req.Mode,
		Language:   req.Language,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusCreated, tt)
}

type listResultsRequest struct {
	Limit  int `form:"limit" binding:"gte=0,lte=100"`
	Offset int `form:"offset" binding:"gte=0"`
}

func (a *API) listTypingResults(c *gin.Context) {
	a.listResults(c, domain.TestKindTyping)
}

func (a *API) listCodeTypingResults(c *gin.Context) {
	a.listResults(c, domain.TestKindCode)
}

func (a *API) listResults(c *gin.Context, kind domain.TestKind) {
	var req listResultsRequest
	if !a.bindQuery(c, &req) {
		return
	}

	tests, err := a.ts.ListResults(c.Request.Context(), typing.ListResultsRequest{
		UserID: userID(c),
		Kind:   kind,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, tests)
}

func (a *API) typingStatistics(c *gin.Context) {
	st, err := a.ts.Statistics(c.Request.Context(), userID(c))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, st)
}

func (a *API) exportTypingResults(c *gin.Context) {
	var buf bytes.Buffer
	if err := a.ts.Export(c.Request.Context(), userID(c), &buf); err != nil {
		a.fail(c, err)
		return
	}

	name := fmt.Sprintf("typing-results-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
