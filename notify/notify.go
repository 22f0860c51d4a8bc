// Package notify delivers balance and announcement events after a ledger
// commit. Delivery is best effort: nothing is retried or acknowledged.
package notify

import (
	"sweeps-settlement-system/money"
)

const (
	TypeBalanceUpdate = "BALANCE_UPDATE"
	TypeTournamentWin = "TOURNAMENT_WIN"
	TypeRain          = "RAIN"
)

type BalanceUpdate struct {
	PlayerID string       `json:"player_id"`
	GC       money.Amount `json:"gc_balance"`
	SC       money.Amount `json:"sc_balance"`
}

// Announcement goes to one player, or to everyone when PlayerID is empty.
type Announcement struct {
	PlayerID string `json:"player_id,omitempty"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

type Notifier interface {
	BalanceChanged(BalanceUpdate)
	Announce(Announcement)
}

// Discard drops every event.
type Discard struct{}

func (Discard) BalanceChanged(BalanceUpdate) {}
func (Discard) Announce(Announcement)        {}

// Message is the envelope written to push clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Fanout sends each event to every notifier in order.
type Fanout []Notifier

func (f Fanout) BalanceChanged(u BalanceUpdate) {
	for _, n := range f {
		n.BalanceChanged(u)
	}
}

func (f Fanout) Announce(a Announcement) {
	for _, n := range f {
		n.Announce(a)
	}
}
