package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eduverse/typehub/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	BadgesAwarded struct {
		Badges []domain.Badge `json:"badges"`
	}

	LeaderboardUpdated struct {
		Type   domain.LeaderboardType   `json:"type"`
		Period domain.LeaderboardPeriod `json:"period"`
		Rank   int                      `json:"rank"`
		Score  int                      `json:"score"`
	}
)

// PublishBadgesAwarded tells the user about newly earned badges.
func (a *API) PublishBadgesAwarded(ctx context.Context, e domain.EventBadgesAwarded) error {
	data := BadgesAwarded{
		Badges: make([]domain.Badge, 0, len(e.Badges)),
	}
	for _, k := range e.Badges {
		if b, found := domain.LookupBadge(k); found {
			data.Badges = append(data.Badges, b)
		}
	}

	return a.publishNotification(ctx, e.UserID, e.Name(), data)
}

// PublishLeaderboardUpdated tells every ranked user their position in the new snapshot.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	l := e.Leaderboard

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range l.Entries {
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.UserID, e.Name(), LeaderboardUpdated{
				Type:   l.Type,
				Period: l.Period,
				Rank:   entry.Rank,
				Score:  entry.Score,
			})
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, a.userChannel(user), b).Err()
}

func (a *API) userChannel(user string) string {
	return fmt.Sprintf("%s:user:%s", a.prefix, user)
}
