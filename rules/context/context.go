/*
Package context assembles a rules/eval.Context from an incoming read or
write operation and adapts rules/eval's get()/exists() built-ins onto the
Document Store (§4.9: "EvaluatorContext assembled from the request...
resolves identifiers against the Document Store's read API").

Grounded on generic/projection.go's "build a view over store state for one
caller" shape: a small struct wrapping a store handle plus the few fields a
caller is allowed to see, rather than exposing the store directly to rules
code.

Two service profiles are supported (§9 D.5): cloud.firestore (documents,
get/exists, full request.resource.data) and firebase.storage (objects,
resource.size/resource.contentType, no cross-object get/exists).
*/
package context

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/docuhearth/docpath"
	"github.com/warp/docuhearth/rules/eval"
	"github.com/warp/docuhearth/store"
	"github.com/warp/docuhearth/value"
)

// Service identifies which of the two accepted service profiles a ruleset
// and its evaluation context belong to.
type Service int

const (
	CloudFirestore Service = iota
	FirebaseStorage
)

func (s Service) String() string {
	if s == FirebaseStorage {
		return "firebase.storage"
	}
	return "cloud.firestore"
}

// Operation is the kind of access being authorized (§4.7 allow ops, plus
// the coarser read/write §6 groups these expand to).
type Operation string

const (
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Request mirrors the production `request` object's shape: auth, time,
// resource (the incoming write's data, for create/update), and the raw
// operation kind.
type Request struct {
	Auth         map[string]any // nil when unauthenticated
	Time         time.Time
	Operation    Operation
	IncomingData map[string]value.Value // the write payload, for create/update
}

// Adapter implements rules/eval.Adapter against a live store.Memory, scoped
// to one project+database (§4.9's get/exists built-ins).
type Adapter struct {
	Store   *store.Memory
	Project string
	Database string
}

var _ eval.Adapter = (*Adapter)(nil)

// resolvePath turns a rules-DSL path argument (after $(...) interpolation)
// into the canonical store key. Absolute paths that already carry the
// "/databases/.../documents" prefix are used as-is (minus the canonical
// "projects/P/databases/D/documents" stitching); anything else is treated
// as relative to this adapter's project+database documents root.
func (a *Adapter) resolvePath(raw string) string {
	if p, err := docpath.Parse(raw); err == nil {
		return p.String()
	}
	root := fmt.Sprintf("projects/%s/databases/%s/documents", a.Project, a.Database)
	trimmed := raw
	for len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}
	if strings.HasPrefix(trimmed, "databases/") {
		return "projects/" + a.Project + "/" + trimmed
	}
	return root + "/" + trimmed
}

// Get implements eval.Adapter: returns the {data, id, __name__} resource
// record of §4.9, or an error if the document doesn't exist.
func (a *Adapter) Get(raw string) (eval.Value, error) {
	key := a.resolvePath(raw)
	doc, ok := a.Store.Get(key)
	if !ok {
		return eval.Value{}, fmt.Errorf("context: no document at %q", key)
	}
	return ToResource(key, doc), nil
}

// Exists implements eval.Adapter.
func (a *Adapter) Exists(raw string) (bool, error) {
	key := a.resolvePath(raw)
	return a.Store.Exists(key), nil
}

// ToResource builds the resource record ({data, id, __name__}) rules code
// observes for a stored document (§4.9).
func ToResource(path string, doc store.Document) eval.Value {
	p, err := docpath.Parse(path)
	id := path
	if err == nil {
		id = p.DocumentID()
	}
	return eval.Map(map[string]eval.Value{
		"data":     ToEval(value.Map(doc.Fields)),
		"id":       eval.String(id),
		"__name__": eval.Path(path),
	})
}

// ToEval converts a document Value into the rules DSL's dynamic Value,
// collapsing Int/Double into the single KindNumber variant eval.Value uses
// (§9's RulesValue design note) and representing maps/arrays recursively.
func ToEval(v value.Value) eval.Value {
	switch v.Kind() {
	case value.KindNull:
		return eval.Null()
	case value.KindBool:
		b, _ := v.AsBool()
		return eval.Bool(b)
	case value.KindInt:
		n, _ := v.AsInt()
		return eval.Int(n)
	case value.KindDouble:
		n, _ := v.AsDouble()
		return eval.Float(n)
	case value.KindTimestamp:
		t, _ := v.AsTimestamp()
		return eval.Timestamp(t)
	case value.KindString:
		s, _ := v.AsString()
		return eval.String(s)
	case value.KindBytes:
		b, _ := v.AsBytes()
		return eval.Bytes(b)
	case value.KindReference:
		s, _ := v.AsReference()
		return eval.Path(s)
	case value.KindGeoPoint:
		g, _ := v.AsGeo()
		return eval.Map(map[string]eval.Value{
			"latitude":  eval.Float(g.Latitude),
			"longitude": eval.Float(g.Longitude),
		})
	case value.KindArray:
		arr, _ := v.AsArray()
		out := make([]eval.Value, len(arr))
		for i, e := range arr {
			out[i] = ToEval(e)
		}
		return eval.List(out)
	case value.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]eval.Value, len(m))
		for k, e := range m {
			out[k] = ToEval(e)
		}
		return eval.Map(out)
	default:
		return eval.Null()
	}
}

// BuildRequest assembles the `request` object's eval.Value shape from a
// Request.
func BuildRequest(r Request) eval.Value {
	fields := map[string]eval.Value{
		"time": eval.Timestamp(r.Time),
	}
	if r.Auth != nil {
		authFields := make(map[string]eval.Value, len(r.Auth))
		for k, v := range r.Auth {
			if s, ok := v.(string); ok {
				authFields[k] = eval.String(s)
			}
		}
		fields["auth"] = eval.Map(authFields)
	} else {
		fields["auth"] = eval.Null()
	}
	if r.IncomingData != nil {
		fields["resource"] = eval.Map(map[string]eval.Value{
			"data": ToEval(value.Map(r.IncomingData)),
		})
	}
	return eval.Map(fields)
}

// BuildResource assembles the `resource` object seen by rules code for an
// existing document: the current on-disk state for cloud.firestore, or a
// size/contentType summary for firebase.storage (§9 D.5).
func BuildResource(service Service, path string, doc store.Document, exists bool) eval.Value {
	if !exists {
		return eval.Null()
	}
	switch service {
	case FirebaseStorage:
		size := 0
		contentType := ""
		if v, ok := doc.Fields["size"]; ok {
			if n, ok := v.AsInt(); ok {
				size = int(n)
			}
		}
		if v, ok := doc.Fields["contentType"]; ok {
			if s, ok := v.AsString(); ok {
				contentType = s
			}
		}
		return eval.Map(map[string]eval.Value{
			"size":        eval.Int(int64(size)),
			"contentType": eval.String(contentType),
		})
	default:
		return ToResource(path, doc)
	}
}
