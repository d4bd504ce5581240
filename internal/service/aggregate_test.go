package service

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/observability"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(zap.NewNop(), observability.NewMetrics())
}

func TestAggregateMergesAndSorts(t *testing.T) {
	agg := newTestAggregator()
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)

	requests := []domain.SupportRequest{
		{ID: "r1", UserID: "u1", Message: "broken build", Status: domain.RequestStatusNew, CreatedAt: t1},
		{ID: "r2", UserID: "u2", Message: "billing question", Status: domain.RequestStatusResolved, CreatedAt: t3},
	}
	issues := []domain.ExternalIssue{
		{ID: "i1", UserID: "u1", Title: "panic on start", Status: domain.IssueStatusOpen, CreatedAt: t2},
	}

	tickets := agg.Aggregate(requests, issues, AggregateFilter{})
	require.Len(t, tickets, 3)
	assert.Equal(t, "sr-r2", tickets[0].ID)
	assert.Equal(t, "xi-i1", tickets[1].ID)
	assert.Equal(t, "sr-r1", tickets[2].ID)

	// Raw status values pass through untranslated.
	assert.Equal(t, "resolved", tickets[0].Status)
	assert.Equal(t, "open", tickets[1].Status)
	assert.Equal(t, domain.OriginExternal, tickets[1].Origin)
}

func TestAggregateDeterministicTiebreak(t *testing.T) {
	agg := newTestAggregator()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	requests := []domain.SupportRequest{
		{ID: "b", UserID: "u1", Message: "two", CreatedAt: at},
		{ID: "a", UserID: "u1", Message: "one", CreatedAt: at},
	}

	first := agg.Aggregate(requests, nil, AggregateFilter{})
	second := agg.Aggregate(requests, nil, AggregateFilter{})
	require.Equal(t, first, second)
	assert.Equal(t, "sr-a", first[0].ID)
	assert.Equal(t, "sr-b", first[1].ID)
}

func TestAggregateEmailFilter(t *testing.T) {
	agg := newTestAggregator()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	requests := []domain.SupportRequest{
		{ID: "r1", UserID: "u1", UserEmail: "a@example.com", Message: "m", CreatedAt: at},
		{ID: "r2", UserID: "u2", UserEmail: "b@example.com", Message: "m", CreatedAt: at},
	}
	issues := []domain.ExternalIssue{
		{ID: "i1", UserID: "u1", UserEmail: "a@example.com", CreatedAt: at},
	}

	tickets := agg.Aggregate(requests, issues, AggregateFilter{UserEmails: []string{"a@example.com"}})
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.Equal(t, "a@example.com", ticket.UserEmail)
	}

	// An empty filter means no filtering.
	all := agg.Aggregate(requests, issues, AggregateFilter{})
	assert.Len(t, all, 3)
}

func TestAggregateTimestampFallback(t *testing.T) {
	agg := newTestAggregator()
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return fixed }

	updated := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	requests := []domain.SupportRequest{
		// No created-at; the sibling updated-at wins.
		{ID: "r1", UserID: "u1", Message: "m", UpdatedAt: updated},
		// Nothing parseable at all; falls back to now.
		{ID: "r2", UserID: "u1", Message: "m"},
	}

	tickets := agg.Aggregate(requests, nil, AggregateFilter{})
	require.Len(t, tickets, 2)
	byID := map[string]domain.UnifiedTicket{}
	for _, ticket := range tickets {
		byID[ticket.ID] = ticket
	}
	assert.Equal(t, updated.UnixMilli(), byID["sr-r1"].CreatedAt)
	assert.Equal(t, fixed.UnixMilli(), byID["sr-r2"].CreatedAt)
	assert.Equal(t, int64(1), agg.metrics.TimestampFallbacks())
}

func TestAggregateInternalNotesVisibility(t *testing.T) {
	agg := newTestAggregator()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	issues := []domain.ExternalIssue{{
		ID:        "i1",
		UserID:    "u1",
		CreatedAt: at,
		Notes: []domain.IssueNote{
			{ID: "n1", Message: "visible", CreatedAt: at},
			{ID: "n2", Message: "staff only", Internal: true, Role: domain.NoteRoleAdmin, CreatedAt: at},
		},
	}}

	customer := agg.Aggregate(nil, issues, AggregateFilter{})
	require.Len(t, customer[0].Notes, 1)
	assert.Equal(t, "visible", customer[0].Notes[0].Message)

	admin := agg.Aggregate(nil, issues, AggregateFilter{IncludeInternal: true})
	require.Len(t, admin[0].Notes, 2)
	assert.Equal(t, domain.NoteRoleAdmin, admin[0].Notes[1].Role)
}

func TestTitleFromMessage(t *testing.T) {
	assert.Equal(t, "short", titleFromMessage("short"))

	long := strings.Repeat("0123456789", 20)
	title := titleFromMessage(long)
	assert.Len(t, title, 80)
	assert.Equal(t, "...", title[77:])
}

func TestTitleFromMessageCutsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 200)
	title := titleFromMessage(long)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, 80, utf8.RuneCountInString(title))
	assert.Equal(t, strings.Repeat("é", 77)+"...", title)

	// Messages under the cap keep their multibyte runes untouched.
	assert.Equal(t, "héllo wörld", titleFromMessage("héllo wörld"))
}
