package domain

const (
	EventNameBadgesAwarded      = "badges.awarded"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

// EventBadgesAwarded is published after the transaction that awarded the badges commits.
type EventBadgesAwarded struct {
	UserID string
	Badges []BadgeKind
}

func (EventBadgesAwarded) Name() string { return EventNameBadgesAwarded }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
