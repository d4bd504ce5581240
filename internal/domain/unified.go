package domain

// Origin identifies which ticket domain a unified ticket came from.
type Origin string

const (
	OriginInternal Origin = "internal"
	OriginExternal Origin = "external"
)

// Unified ticket identifiers are prefixed by origin so the id space stays
// disjoint across the two domains.
const (
	UnifiedIDPrefixInternal = "sr-"
	UnifiedIDPrefixExternal = "xi-"
)

// UnifiedTicket is the read-only projection merging both ticket domains.
// Status carries the raw origin-specific value; translation only ever happens
// through the status taxonomy mapper when a cross-domain action requires it.
// CreatedAt is canonical epoch-milliseconds.
type UnifiedTicket struct {
	ID        string
	Origin    Origin
	Title     string
	Body      string
	Status    string
	CreatedAt int64
	UserID    string
	UserName  string
	UserEmail string
	Notes     []UnifiedNote

	// Origin-specific passthrough.
	Repository  string
	ExternalURL string
	RepoRef     string
}

// UnifiedNote is the canonical note shape both UIs render.
type UnifiedNote struct {
	ID          string
	AuthorID    string
	AuthorName  string
	AuthorEmail string
	Message     string
	Role        NoteRole
	CreatedAt   int64
}
