package alembic

import "regexp"

// revIDPattern matches an Alembic revision identifier: lowercase hex,
// 12 characters by default but configurable upstream, so anything from
// 4 characters up is accepted.
var revIDPattern = regexp.MustCompile(`^[0-9a-f]{4,40}$`)

// IsRevisionID reports whether s looks like a revision identifier.
func IsRevisionID(s string) bool {
	return revIDPattern.MatchString(s)
}

// ShortID returns the abbreviated form of a revision identifier, the
// first 8 characters, or the whole id when it is shorter than that.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RevisionRecord is one entry of `alembic history --verbose` output.
// Records are mutated by the parser while it accumulates lines and are
// not touched again once emitted.
type RevisionRecord struct {
	ID           string
	Message      string
	BranchLabels []string
	DownRevision string // empty means root (<base>)
	IsMerge      bool
	Date         string

	// Header hints from parenthesized tokens on the Rev: line. The
	// dedicated `current` and `heads` listings are authoritative; these
	// exist only as a fallback signal.
	HintCurrent bool
	HintHead    bool
}

// ShortID returns the abbreviated form of the record's identifier.
func (r *RevisionRecord) ShortID() string {
	return ShortID(r.ID)
}

// IsRoot reports whether the record has no parent.
func (r *RevisionRecord) IsRoot() bool {
	return r.DownRevision == ""
}
