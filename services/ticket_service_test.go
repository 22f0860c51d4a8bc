package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
)

func (h *harness) ticketType(t *testing.T) *models.TicketType {
	t.Helper()
	tt, err := h.tickets.CreateTicketType(context.Background(), TicketTypeInput{
		Name:           "Lucky Scratch",
		Currency:       models.CurrencySC,
		Price:          money.Units(1),
		WinProbability: 0.5,
		MinPrize:       100,
		MaxPrize:       300,
	})
	require.NoError(t, err)
	return tt
}

func TestCreateTicketTypeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cases := []TicketTypeInput{
		{Name: "", Currency: models.CurrencySC, Price: 100},
		{Name: "x", Currency: "BTC", Price: 100},
		{Name: "x", Currency: models.CurrencySC, Price: 0},
		{Name: "x", Currency: models.CurrencySC, Price: 100, WinProbability: 1.5},
		{Name: "x", Currency: models.CurrencySC, Price: 100, MinPrize: 500, MaxPrize: 100},
	}
	for _, in := range cases {
		_, err := h.tickets.CreateTicketType(ctx, in)
		assert.True(t, IsValidation(err), "%+v", in)
	}
}

func TestTicketLifecycleWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tt := h.ticketType(t)
	p := h.fundedPlayer(t, 0, money.Units(10))
	h.tickets.Source = draws(0.1, 0.5)

	ticket, balance, err := h.tickets.Purchase(ctx, p.ID, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketPurchased, ticket.Status)
	assert.Equal(t, money.Units(9), balance.SCBalance)

	// the outcome was fixed at purchase and later draws cannot change it
	h.tickets.Source = draws(0.99)
	revealed, err := h.tickets.Reveal(ctx, p.ID, ticket.ID)
	require.NoError(t, err)
	assert.True(t, revealed.Win)
	assert.Equal(t, money.Amount(200), revealed.Prize)
	assert.Equal(t, models.TicketRevealed, revealed.Ticket.Status)
	assert.NotNil(t, revealed.Ticket.RevealedAt)

	_, err = h.tickets.Reveal(ctx, p.ID, ticket.ID)
	assert.True(t, IsConflict(err), "cannot reveal twice")

	claimed, after, err := h.tickets.Claim(ctx, p.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketClaimed, claimed.Ticket.Status)
	assert.Equal(t, money.Units(9)+200, after.SCBalance)

	_, _, err = h.tickets.Claim(ctx, p.ID, ticket.ID)
	assert.True(t, IsConflict(err), "claimed is terminal")
	assert.Equal(t, money.Units(9)+200, h.player(t, p.ID).SCBalance)
	h.requireConserved(t, p.ID)
}

func TestTicketLoserClaimsNothingAndCannotBeSaved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tt := h.ticketType(t)
	p := h.fundedPlayer(t, 0, money.Units(10))
	h.tickets.Source = draws(0.9)

	ticket, _, err := h.tickets.Purchase(ctx, p.ID, tt.ID)
	require.NoError(t, err)

	_, _, err = h.tickets.Claim(ctx, p.ID, ticket.ID)
	assert.True(t, IsConflict(err), "must reveal before claiming")

	revealed, err := h.tickets.Reveal(ctx, p.ID, ticket.ID)
	require.NoError(t, err)
	assert.False(t, revealed.Win)
	assert.Zero(t, revealed.Prize)

	_, err = h.tickets.Save(ctx, p.ID, ticket.ID)
	assert.True(t, IsValidation(err))

	_, after, err := h.tickets.Claim(ctx, p.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Units(9), after.SCBalance)
	assert.Zero(t, h.countRows(t, &models.WalletTransaction{}, "player_id = ? AND type = ?", p.ID, models.TxTicketWin))
}

func TestSavedTicketIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tt := h.ticketType(t)
	p := h.fundedPlayer(t, 0, money.Units(10))
	h.tickets.Source = draws(0.0, 0.0)

	ticket, _, err := h.tickets.Purchase(ctx, p.ID, tt.ID)
	require.NoError(t, err)
	_, err = h.tickets.Reveal(ctx, p.ID, ticket.ID)
	require.NoError(t, err)

	saved, err := h.tickets.Save(ctx, p.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketSaved, saved.Ticket.Status)
	assert.Equal(t, money.Amount(100), saved.Prize)

	_, _, err = h.tickets.Claim(ctx, p.ID, ticket.ID)
	assert.True(t, IsConflict(err))
	assert.Equal(t, money.Units(9), h.player(t, p.ID).SCBalance, "saving forgoes the prize")
}

func TestTicketOwnershipAndFunds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tt := h.ticketType(t)
	owner := h.fundedPlayer(t, 0, money.Units(10))
	stranger := h.fundedPlayer(t, 0, 0)

	_, _, err := h.tickets.Purchase(ctx, stranger.ID, tt.ID)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, h.countRows(t, &models.TicketPurchase{}, "player_id = ?", stranger.ID))

	_, _, err = h.tickets.Purchase(ctx, owner.ID, uuid.NewString())
	assert.True(t, IsNotFound(err))

	ticket, _, err := h.tickets.Purchase(ctx, owner.ID, tt.ID)
	require.NoError(t, err)
	_, err = h.tickets.Reveal(ctx, stranger.ID, ticket.ID)
	assert.True(t, IsNotFound(err), "another player's ticket is invisible")

	list, err := h.tickets.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
