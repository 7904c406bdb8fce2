package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/leaderboard"
)

// parseKey validates a (type, period) pair, writing a 400 when either is unknown.
func (a *API) parseKey(c *gin.Context, typ, period string) (domain.LeaderboardType, domain.LeaderboardPeriod, bool) {
	var fields []errors.FieldError

	t, err := domain.ParseLeaderboardType(typ)
	if err != nil {
		fields = append(fields, errors.FieldError{Field: "type", Message: "must be one of wpm points lessons"})
	}
	p, err := domain.ParseLeaderboardPeriod(period)
	if err != nil {
		fields = append(fields, errors.FieldError{Field: "period", Message: "must be one of daily weekly monthly all-time"})
	}

	if len(fields) > 0 {
		a.fail(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid leaderboard"),
			errors.WithFields(fields...),
		))
		return "", "", false
	}

	return t, p, true
}

func (a *API) getLeaderboard(c *gin.Context) {
	t, p, valid := a.parseKey(c, c.Param("type"), c.Param("period"))
	if !valid {
		return
	}

	lb, err := a.ls.Get(c.Request.Context(), leaderboard.GetRequest{Type: t, Period: p})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, lb)
}

func (a *API) myRank(c *gin.Context) {
	t, p, valid := a.parseKey(c, c.DefaultQuery("type", string(domain.LeaderboardWPM)), c.DefaultQuery("period", string(domain.PeriodAllTime)))
	if !valid {
		return
	}

	rank, err := a.ls.MyRank(c.Request.Context(), leaderboard.MyRankRequest{
		UserID: userID(c),
		Type:   t,
		Period: p,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, rank)
}

type rebuildResponse struct {
	Rebuilt []*domain.Leaderboard `json:"rebuilt,omitempty"`
}

// rebuildLeaderboard rebuilds one key when type and period are given, every key otherwise.
func (a *API) rebuildLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	typ, period := c.Query("type"), c.Query("period")

	if typ == "" && period == "" {
		if err := a.ls.RebuildAll(ctx); err != nil {
			a.fail(c, err)
			return
		}
		ok(c, http.StatusOK, rebuildResponse{})
		return
	}

	t, p, valid := a.parseKey(c, typ, period)
	if !valid {
		return
	}

	lb, err := a.ls.Rebuild(ctx, leaderboard.RebuildRequest{Type: t, Period: p})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, http.StatusOK, rebuildResponse{Rebuilt: []*domain.Leaderboard{lb}})
}
