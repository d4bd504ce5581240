package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToExternalStatus(t *testing.T) {
	assert.Equal(t, IssueStatusOpen, ToExternalStatus(RequestStatusNew))
	assert.Equal(t, IssueStatusInProgress, ToExternalStatus(RequestStatusInProgress))
	assert.Equal(t, IssueStatusWaitingOnUser, ToExternalStatus(RequestStatusWaitingOnUser))
	assert.Equal(t, IssueStatusResolved, ToExternalStatus(RequestStatusResolved))
	assert.Equal(t, IssueStatusClosed, ToExternalStatus(RequestStatusClosed))

	// Unknown values degrade to the most visible state instead of failing.
	assert.Equal(t, IssueStatusOpen, ToExternalStatus(RequestStatus("archived")))
	assert.Equal(t, IssueStatusOpen, ToExternalStatus(RequestStatus("")))
}

func TestToInternalStatus(t *testing.T) {
	assert.Equal(t, RequestStatusNew, ToInternalStatus(IssueStatusOpen))
	assert.Equal(t, RequestStatusInProgress, ToInternalStatus(IssueStatusInProgress))
	assert.Equal(t, RequestStatusWaitingOnUser, ToInternalStatus(IssueStatusWaitingOnUser))
	assert.Equal(t, RequestStatusResolved, ToInternalStatus(IssueStatusResolved))
	assert.Equal(t, RequestStatusClosed, ToInternalStatus(IssueStatusClosed))

	assert.Equal(t, RequestStatusNew, ToInternalStatus(IssueStatus("duplicate")))
	assert.Equal(t, RequestStatusNew, ToInternalStatus(IssueStatus("")))
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []RequestStatus{
		RequestStatusNew, RequestStatusInProgress, RequestStatusWaitingOnUser,
		RequestStatusResolved, RequestStatusClosed,
	} {
		assert.Equal(t, s, ToInternalStatus(ToExternalStatus(s)), string(s))
	}
}

func TestKnownStatuses(t *testing.T) {
	assert.True(t, KnownRequestStatus(RequestStatusWaitingOnUser))
	assert.False(t, KnownRequestStatus(RequestStatus("open"))) // external word, not internal
	assert.True(t, KnownIssueStatus(IssueStatusOpen))
	assert.False(t, KnownIssueStatus(IssueStatus("new")))
}
