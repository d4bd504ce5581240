package domain

// The two status vocabularies evolved independently; the tables below are the
// only place translation between them is allowed. They are deliberately two
// separate lookup tables rather than one invertible enum so that a future
// external-only state (say "duplicate") can be mapped without touching the
// other direction.

var requestToIssueStatus = map[RequestStatus]IssueStatus{
	RequestStatusNew:           IssueStatusOpen,
	RequestStatusInProgress:    IssueStatusInProgress,
	RequestStatusWaitingOnUser: IssueStatusWaitingOnUser,
	RequestStatusResolved:      IssueStatusResolved,
	RequestStatusClosed:        IssueStatusClosed,
}

var issueToRequestStatus = map[IssueStatus]RequestStatus{
	IssueStatusOpen:          RequestStatusNew,
	IssueStatusInProgress:    RequestStatusInProgress,
	IssueStatusWaitingOnUser: RequestStatusWaitingOnUser,
	IssueStatusResolved:      RequestStatusResolved,
	IssueStatusClosed:        RequestStatusClosed,
}

// ToExternalStatus translates an internal request status into the external
// issue vocabulary. Unknown input falls back to the open state.
func ToExternalStatus(s RequestStatus) IssueStatus {
	if mapped, ok := requestToIssueStatus[s]; ok {
		return mapped
	}
	return IssueStatusOpen
}

// ToInternalStatus translates an external issue status into the internal
// request vocabulary. Unknown input falls back to the new state.
func ToInternalStatus(s IssueStatus) RequestStatus {
	if mapped, ok := issueToRequestStatus[s]; ok {
		return mapped
	}
	return RequestStatusNew
}
