package service

import (
	"sort"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/observability"
	"github.com/spec-kit/support-sync/pkg/timestamp"
)

// AggregateFilter narrows the merged ticket set. An empty email list means no
// filtering, not "exclude everything".
type AggregateFilter struct {
	UserEmails      []string
	IncludeInternal bool
}

// Aggregator merges the two ticket domains into the UnifiedTicket read model.
// Deterministic: the same inputs always produce the same order.
type Aggregator struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewAggregator constructs an aggregator.
func NewAggregator(logger *zap.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{logger: logger, metrics: metrics, now: time.Now}
}

// Aggregate projects both domain lists into unified tickets, applies the
// filter, and sorts by normalized created-at descending with id ascending as
// the tiebreak.
func (a *Aggregator) Aggregate(internal []domain.SupportRequest, external []domain.ExternalIssue, filter AggregateFilter) []domain.UnifiedTicket {
	tickets := make([]domain.UnifiedTicket, 0, len(internal)+len(external))
	for i := range internal {
		tickets = append(tickets, a.unifyRequest(&internal[i]))
	}
	for i := range external {
		tickets = append(tickets, a.unifyIssue(&external[i], filter.IncludeInternal))
	}

	if len(filter.UserEmails) > 0 {
		allowed := make(map[string]struct{}, len(filter.UserEmails))
		for _, email := range filter.UserEmails {
			allowed[email] = struct{}{}
		}
		filtered := tickets[:0]
		for _, ticket := range tickets {
			if _, ok := allowed[ticket.UserEmail]; ok {
				filtered = append(filtered, ticket)
			}
		}
		tickets = filtered
	}

	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt != tickets[j].CreatedAt {
			return tickets[i].CreatedAt > tickets[j].CreatedAt
		}
		return tickets[i].ID < tickets[j].ID
	})
	return tickets
}

func (a *Aggregator) unifyRequest(req *domain.SupportRequest) domain.UnifiedTicket {
	id := domain.UnifiedIDPrefixInternal + req.ID
	ticket := domain.UnifiedTicket{
		ID:        id,
		Origin:    domain.OriginInternal,
		Title:     titleFromMessage(req.Message),
		Body:      req.Message,
		Status:    string(req.Status),
		CreatedAt: a.createdAt(id, req.CreatedAt, req.UpdatedAt),
		UserID:    req.UserID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		Notes:     UnifyRequestNotes(req.Notes),
	}
	if req.RepoRef != nil {
		ticket.RepoRef = *req.RepoRef
	}
	return ticket
}

func (a *Aggregator) unifyIssue(issue *domain.ExternalIssue, includeInternal bool) domain.UnifiedTicket {
	id := domain.UnifiedIDPrefixExternal + issue.ID
	return domain.UnifiedTicket{
		ID:          id,
		Origin:      domain.OriginExternal,
		Title:       issue.Title,
		Body:        issue.Body,
		Status:      string(issue.Status),
		CreatedAt:   a.issueCreatedAt(id, issue),
		UserID:      issue.UserID,
		UserName:    issue.UserName,
		UserEmail:   issue.UserEmail,
		Notes:       UnifyIssueNotes(issue.Notes, includeInternal),
		Repository:  issue.Repository,
		ExternalURL: issue.ExternalURL,
	}
}

// createdAt normalizes with updated-at as the sibling fallback. Falling all
// the way back to "now" means the document carries no usable timestamp at
// all; that is logged as a data-quality signal, never treated as
// authoritative silently.
// issueCreatedAt prefers the tracker's own creation clock; the local
// created-at is only when the issue was imported, not when it was opened.
func (a *Aggregator) issueCreatedAt(id string, issue *domain.ExternalIssue) int64 {
	if ms, ok := timestamp.NormalizeOr(issue.ExternalCreatedAt, issue.ExternalUpdatedAt, issue.CreatedAt, issue.UpdatedAt); ok {
		return ms
	}
	a.logger.Warn("ticket has no parseable timestamp, falling back to now",
		zap.String("ticket_id", id))
	a.metrics.RecordTimestampFallback()
	return a.now().UnixMilli()
}

func (a *Aggregator) createdAt(id string, created, updated time.Time) int64 {
	if ms, ok := timestamp.NormalizeOr(created, updated); ok {
		return ms
	}
	a.logger.Warn("ticket has no parseable timestamp, falling back to now",
		zap.String("ticket_id", id))
	a.metrics.RecordTimestampFallback()
	return a.now().UnixMilli()
}

func titleFromMessage(message string) string {
	const max = 80
	if utf8.RuneCountInString(message) <= max {
		return message
	}
	// Cut on a rune boundary so a multibyte message never yields a mangled
	// title.
	return string([]rune(message)[:max-3]) + "..."
}
