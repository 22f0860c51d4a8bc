package models

import (
	"time"

	"github.com/shopspring/decimal"

	"sweeps-settlement-system/money"
)

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

type ScoringRule string

const (
	ScoreHighestMultiplier ScoringRule = "highest_win_multiplier"
	ScoreTotalWagered      ScoringRule = "total_wagered"
	ScoreTotalWins         ScoringRule = "total_wins"
)

func (r ScoringRule) Valid() bool {
	switch r {
	case ScoreHighestMultiplier, ScoreTotalWagered, ScoreTotalWins:
		return true
	}
	return false
}

// Tournament represents a leaderboard-style tournament bound to one game and
// currency. Status only moves forward and only the scheduler moves it.
type Tournament struct {
	ID              string           `json:"id" gorm:"primaryKey;type:uuid"`
	Slug            string           `json:"slug" gorm:"uniqueIndex;not null"`
	Name            string           `json:"name" gorm:"not null"`
	GameID          string           `json:"game_id" gorm:"type:uuid;not null;index"`
	Game            Game             `json:"-" gorm:"foreignKey:GameID"`
	Currency        Currency         `json:"currency" gorm:"type:varchar(2);not null"`
	EntryFee        money.Amount     `json:"entry_fee" gorm:"not null;default:0"`
	PrizePool       money.Amount     `json:"prize_pool" gorm:"not null;default:0"`
	ScoringRule     ScoringRule      `json:"scoring_rule" gorm:"type:varchar(32);not null"`
	MaxParticipants int              `json:"max_participants" gorm:"default:0"` // 0 = unlimited
	Status          TournamentStatus `json:"status" gorm:"type:varchar(16);not null;default:'upcoming';index"`
	StartTime       time.Time        `json:"start_time" gorm:"not null;index"`
	EndTime         time.Time        `json:"end_time" gorm:"not null;index"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`

	Timestamps
}

// TournamentParticipant is unique per (tournament, player).
type TournamentParticipant struct {
	ID           string          `json:"id" gorm:"primaryKey;type:uuid"`
	TournamentID string          `json:"tournament_id" gorm:"type:uuid;not null;uniqueIndex:idx_tournament_player"`
	PlayerID     string          `json:"player_id" gorm:"type:uuid;not null;uniqueIndex:idx_tournament_player;index"`
	Player       Player          `json:"-" gorm:"foreignKey:PlayerID"`
	Score        decimal.Decimal `json:"score" gorm:"type:decimal(24,8);not null;default:0"`
	Rank         int             `json:"rank" gorm:"default:0"` // 0 = not ranked yet
	Prize        money.Amount    `json:"prize" gorm:"not null;default:0"`
	JoinedAt     time.Time       `json:"joined_at" gorm:"not null"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}
