package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/events"
	"github.com/spec-kit/support-sync/internal/observability"
	"github.com/spec-kit/support-sync/internal/repository"
	"github.com/spec-kit/support-sync/internal/tracker"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

type memIssueRepo struct {
	issues map[string]*domain.ExternalIssue
	nextID int
}

func newMemIssueRepo() *memIssueRepo {
	return &memIssueRepo{issues: map[string]*domain.ExternalIssue{}}
}

func (r *memIssueRepo) Insert(_ context.Context, issue *domain.ExternalIssue) (bool, error) {
	for _, existing := range r.issues {
		if existing.Repository == issue.Repository && existing.ExternalIssueID == issue.ExternalIssueID {
			return false, nil
		}
	}
	r.nextID++
	issue.ID = fmt.Sprintf("rec-%d", r.nextID)
	copied := *issue
	r.issues[issue.ID] = &copied
	return true, nil
}

func (r *memIssueRepo) UpdateStatus(_ context.Context, id string, status domain.IssueStatus) error {
	issue, ok := r.issues[id]
	if !ok {
		return apperrors.NewNotFound("external issue", nil)
	}
	issue.Status = status
	return nil
}

func (r *memIssueRepo) GetByID(_ context.Context, id string) (*domain.ExternalIssue, error) {
	issue, ok := r.issues[id]
	if !ok {
		return nil, apperrors.NewNotFound("external issue", nil)
	}
	copied := *issue
	return &copied, nil
}

func (r *memIssueRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.issues[id]; !ok {
		return apperrors.NewNotFound("external issue", nil)
	}
	delete(r.issues, id)
	return nil
}

func (r *memIssueRepo) List(_ context.Context, filter repository.IssueFilter) ([]domain.ExternalIssue, error) {
	out := []domain.ExternalIssue{}
	for _, issue := range r.issues {
		if filter.UserID != nil && issue.UserID != *filter.UserID {
			continue
		}
		if filter.Repository != nil && issue.Repository != *filter.Repository {
			continue
		}
		out = append(out, *issue)
	}
	return out, nil
}

func (r *memIssueRepo) ListExternalIDs(_ context.Context, repo string) ([]int64, error) {
	ids := []int64{}
	for _, issue := range r.issues {
		if issue.Repository == repo {
			ids = append(ids, issue.ExternalIssueID)
		}
	}
	return ids, nil
}

type memIssueNoteRepo struct {
	notes  map[string][]domain.IssueNote
	nextID int
}

func newMemIssueNoteRepo() *memIssueNoteRepo {
	return &memIssueNoteRepo{notes: map[string][]domain.IssueNote{}}
}

func (r *memIssueNoteRepo) Append(_ context.Context, note *domain.IssueNote) error {
	r.nextID++
	note.ID = fmt.Sprintf("note-%d", r.nextID)
	r.notes[note.IssueID] = append(r.notes[note.IssueID], *note)
	return nil
}

func (r *memIssueNoteRepo) ListByIssue(_ context.Context, issueID string) ([]domain.IssueNote, error) {
	return append([]domain.IssueNote(nil), r.notes[issueID]...), nil
}

type fakeRemote struct {
	open       []tracker.CandidateIssue
	listErr    error
	closeErr   error
	commentErr error
	closed     []int64
	commented  []string
}

func (f *fakeRemote) ListOpenIssues(_ context.Context, _, _ string) ([]tracker.CandidateIssue, error) {
	return f.open, f.listErr
}

func (f *fakeRemote) CloseIssue(_ context.Context, _, _ string, id int64) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeRemote) CreateComment(_ context.Context, _, _ string, _ int64, body string) error {
	if f.commentErr != nil {
		return f.commentErr
	}
	f.commented = append(f.commented, body)
	return nil
}

type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) ofType(eventType events.EventType) []events.Event {
	var matched []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func newTestIssueService(remote tracker.RemoteClient, repo *memIssueRepo, notes *memIssueNoteRepo) *IssueService {
	return NewIssueService(IssueDependencies{
		Remote:    remote,
		IssueRepo: repo,
		NoteRepo:  notes,
		Logger:    zap.NewNop(),
		Metrics:   observability.NewMetrics(),
	})
}

var attribution = ImportAttribution{UserID: "u1", UserName: "Pat", UserEmail: "pat@example.com"}

func TestListCandidateIssuesExcludesImported(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{
		{ID: 1, Title: "a", State: "open"},
		{ID: 2, Title: "b", State: "open"},
	}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{1})
	require.NoError(t, err)

	candidates, err := svc.ListCandidateIssues(context.Background(), "inst", "acme/app")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(2), candidates[0].ID)
}

func TestImportIssuesIdempotent(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{
		{ID: 1, Title: "a", State: "open"},
		{ID: 2, Title: "b", State: "open"},
	}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	count, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The second run inserts nothing and reports zero.
	count, err = svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Len(t, repo.issues, 2)
}

func TestImportIssuesEmptySelectionRejected(t *testing.T) {
	svc := newTestIssueService(&fakeRemote{}, newMemIssueRepo(), newMemIssueNoteRepo())
	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, nil)
	assert.True(t, apperrors.IsValidation(err))
}

func TestImportIssuesSkipsVanishedCandidates(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 1, Title: "a", State: "open"}}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	count, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{1, 99})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImportIssuesCarriesAttribution(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 1, Title: "a", State: "weird-state"}}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{1})
	require.NoError(t, err)

	userID := "u1"
	issues, err := svc.List(context.Background(), repository.IssueFilter{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "pat@example.com", issues[0].UserEmail)
	// Unknown tracker states degrade to open.
	assert.Equal(t, domain.IssueStatusOpen, issues[0].Status)
}

func TestSetStatusRejectsUnknownVocabulary(t *testing.T) {
	svc := newTestIssueService(&fakeRemote{}, newMemIssueRepo(), newMemIssueNoteRepo())
	err := svc.SetStatus(context.Background(), "rec-1", domain.IssueStatus("nonsense"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestClosePermanentlyClosesRemoteAndDeletesLocal(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	require.NoError(t, svc.ClosePermanently(context.Background(), recordID, "inst", "acme/app", 7))
	assert.Equal(t, []int64{7}, remote.closed)
	assert.Empty(t, repo.issues)
}

func TestClosePermanentlyToleratesRemoteNotFound(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	remote.closeErr = apperrors.NewNotFound("issue", nil)
	require.NoError(t, svc.ClosePermanently(context.Background(), recordID, "inst", "acme/app", 7))
	assert.Empty(t, repo.issues)
}

func TestClosePermanentlyStopsOnOtherRemoteErrors(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	remote.closeErr = apperrors.NewTransientError("tracker down", nil)
	err = svc.ClosePermanently(context.Background(), recordID, "inst", "acme/app", 7)
	assert.True(t, apperrors.IsTransient(err))
	// The local record survives so the operation can be retried.
	assert.Len(t, repo.issues, 1)
}

func TestRemoveFromViewKeepsTrackerUntouched(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	require.NoError(t, svc.RemoveFromView(context.Background(), recordID))
	assert.Empty(t, remote.closed)
	assert.Empty(t, repo.issues)

	// And the same issue becomes a candidate again.
	candidates, err := svc.ListCandidateIssues(context.Background(), "inst", "acme/app")
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestAppendNoteValidatesAndDefaultsRole(t *testing.T) {
	repo := newMemIssueRepo()
	notes := newMemIssueNoteRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}}}
	svc := newTestIssueService(remote, repo, notes)

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	_, err = svc.AppendNote(context.Background(), recordID, IssueNoteInput{Message: "   "})
	assert.True(t, apperrors.IsValidation(err))

	note, err := svc.AppendNote(context.Background(), recordID, IssueNoteInput{
		AuthorID: "u1",
		Message:  "  hello  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", note.Message)
	assert.Equal(t, domain.NoteRoleCustomer, note.Role)

	loaded, err := svc.GetWithNotes(context.Background(), recordID)
	require.NoError(t, err)
	require.Len(t, loaded.Notes, 1)
}

func TestAppendNoteMirrorsCustomerVisibleNotesToTracker(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}}}
	svc := newTestIssueService(remote, repo, newMemIssueNoteRepo())

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	_, err = svc.AppendNote(context.Background(), recordID, IssueNoteInput{
		AuthorID:   "a1",
		AuthorName: "Sam",
		Message:    "we are on it",
		Role:       domain.NoteRoleAdmin,
	})
	require.NoError(t, err)
	require.Len(t, remote.commented, 1)
	assert.Equal(t, "Sam: we are on it", remote.commented[0])

	// Internal notes never leave the service.
	_, err = svc.AppendNote(context.Background(), recordID, IssueNoteInput{
		AuthorID: "a1",
		Message:  "triage: waiting on infra",
		Internal: true,
		Role:     domain.NoteRoleAdmin,
	})
	require.NoError(t, err)
	assert.Len(t, remote.commented, 1)
}

func TestAppendNoteSurvivesTrackerCommentFailure(t *testing.T) {
	repo := newMemIssueRepo()
	notes := newMemIssueNoteRepo()
	remote := &fakeRemote{
		open:       []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}},
		commentErr: apperrors.NewTransientError("tracker unavailable", nil),
	}
	svc := newTestIssueService(remote, repo, notes)

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	// The local note is the source of truth; a failed mirror is logged, not
	// surfaced.
	note, err := svc.AppendNote(context.Background(), recordID, IssueNoteInput{
		AuthorID: "a1",
		Message:  "still here",
		Role:     domain.NoteRoleAdmin,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)

	loaded, err := svc.GetWithNotes(context.Background(), recordID)
	require.NoError(t, err)
	assert.Len(t, loaded.Notes, 1)
}

func TestAppendNoteEventCarriesAuthorIdentity(t *testing.T) {
	repo := newMemIssueRepo()
	remote := &fakeRemote{open: []tracker.CandidateIssue{{ID: 7, Title: "a", State: "open"}}}
	dispatcher := &captureDispatcher{}
	svc := NewIssueService(IssueDependencies{
		Remote:     remote,
		IssueRepo:  repo,
		NoteRepo:   newMemIssueNoteRepo(),
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})

	_, err := svc.ImportIssues(context.Background(), "inst", "acme/app", attribution, []int64{7})
	require.NoError(t, err)
	var recordID string
	for id := range repo.issues {
		recordID = id
	}

	_, err = svc.AppendNote(context.Background(), recordID, IssueNoteInput{
		AuthorID: "a1",
		Message:  "on it",
		Role:     domain.NoteRoleAdmin,
	})
	require.NoError(t, err)
	_, err = svc.AppendNote(context.Background(), recordID, IssueNoteInput{
		AuthorID: "u9",
		Message:  "thanks",
	})
	require.NoError(t, err)

	noteEvents := dispatcher.ofType(events.EventNoteAdded)
	require.Len(t, noteEvents, 2)
	require.NotNil(t, noteEvents[0].Actor.AdminID)
	assert.Equal(t, "a1", *noteEvents[0].Actor.AdminID)
	require.NotNil(t, noteEvents[1].Actor.UserID)
	assert.Equal(t, "u9", *noteEvents[1].Actor.UserID)
}
