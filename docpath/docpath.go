/*
Package docpath implements the Path Codec (§4.1): parsing, validating, and
building canonical document paths of the form

	projects/{project}/databases/{database}/documents/{c1}/{id1}/.../{cn}/{idn}

PURPOSE:

	Every document, and every rules-pattern match target, is addressed by one
	of these paths. The suffix after ".../documents/" must have an even
	number of segments (collection, id, collection, id, ...), with at least
	one pair.

DESIGN:

	Mirrors generic/time.go's style: small value types built by a
	constructor, validated once at parse time, with cheap comparison/
	formatting methods afterward. No third-party parsing library fits a
	fixed, five-part URL-shaped grammar this small; hand-rolled string
	splitting is the idiomatic choice here (see DESIGN.md).

SEE ALSO:
  - rules/match: matches a Path against a rules pattern
  - store: keys the Document Store by Path
*/
package docpath

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for any structurally malformed path.
var ErrInvalidPath = errors.New("docpath: invalid path")

// ErrUnknownDatabase is returned when the database segment isn't the
// accepted default database name (§6: "only the default database name...
// is accepted; any other yields NOT_FOUND").
var ErrUnknownDatabase = errors.New("docpath: unknown database")

// DefaultDatabase is the only database name accepted (production spelling).
const DefaultDatabase = "(default)"

// Path is a parsed, validated document path.
type Path struct {
	Project  string
	Database string
	// Segments alternates collection, id, collection, id, ... and always has
	// an even, non-zero length.
	Segments []string
}

// Parse parses and validates a full document path. Returns ErrInvalidPath
// for structural problems (wrong prefix, odd segment count, empty segments)
// and ErrUnknownDatabase if the database segment isn't DefaultDatabase.
func Parse(raw string) (Path, error) {
	parts := strings.Split(raw, "/")
	// Expect: "projects", P, "databases", D, "documents", c1, id1, ...
	if len(parts) < 6 {
		return Path{}, fmt.Errorf("%w: too few segments in %q", ErrInvalidPath, raw)
	}
	if parts[0] != "projects" || parts[2] != "databases" || parts[4] != "documents" {
		return Path{}, fmt.Errorf("%w: malformed prefix in %q", ErrInvalidPath, raw)
	}
	project := parts[1]
	database := parts[3]
	if project == "" {
		return Path{}, fmt.Errorf("%w: empty project in %q", ErrInvalidPath, raw)
	}
	if database == "" {
		return Path{}, fmt.Errorf("%w: empty database in %q", ErrInvalidPath, raw)
	}

	suffix := parts[5:]
	if len(suffix) == 0 || len(suffix)%2 != 0 {
		return Path{}, fmt.Errorf("%w: odd or empty segment count in %q", ErrInvalidPath, raw)
	}
	for _, s := range suffix {
		if s == "" {
			return Path{}, fmt.Errorf("%w: empty path segment in %q", ErrInvalidPath, raw)
		}
	}

	p := Path{Project: project, Database: database, Segments: append([]string(nil), suffix...)}
	if database != DefaultDatabase {
		return p, fmt.Errorf("%w: %q", ErrUnknownDatabase, database)
	}
	return p, nil
}

// String rebuilds the canonical path string.
func (p Path) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "projects/%s/databases/%s/documents", p.Project, p.Database)
	for _, s := range p.Segments {
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}

// CollectionID returns the final collection id (the second-to-last
// segment), and DocumentID returns the final document id (the last
// segment).
func (p Path) CollectionID() string {
	if len(p.Segments) < 2 {
		return ""
	}
	return p.Segments[len(p.Segments)-2]
}

func (p Path) DocumentID() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// Parent returns the parent document's path and ok=true, or ok=false if this
// path is already a top-level document (only one collection/id pair).
func (p Path) Parent() (Path, bool) {
	if len(p.Segments) <= 2 {
		return Path{}, false
	}
	return Path{Project: p.Project, Database: p.Database, Segments: p.Segments[:len(p.Segments)-2]}, true
}

// Child builds a child document path by appending a collection/id pair.
func (p Path) Child(collection, id string) Path {
	segs := append(append([]string(nil), p.Segments...), collection, id)
	return Path{Project: p.Project, Database: p.Database, Segments: segs}
}

// Equal compares two paths for exact structural equality.
func (p Path) Equal(o Path) bool {
	if p.Project != o.Project || p.Database != o.Database || len(p.Segments) != len(o.Segments) {
		return false
	}
	for i := range p.Segments {
		if p.Segments[i] != o.Segments[i] {
			return false
		}
	}
	return true
}

// InCollectionGroup reports whether p belongs to the named collection group
// (§4.8: "for a collection id c, a path matches iff its second-to-last
// segment equals c").
func (p Path) InCollectionGroup(collectionID string) bool {
	return p.CollectionID() == collectionID
}

// DocumentsRoot returns the "projects/{P}/databases/{D}/documents" prefix
// shared by every path built from the same project+database.
func (p Path) DocumentsRoot() string {
	return fmt.Sprintf("projects/%s/databases/%s/documents", p.Project, p.Database)
}
