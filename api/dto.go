/*
Package api exposes the engine over the wire schema of §6: JSON payloads
mirroring the production REST API's Write/FirestoreDocument/Precondition/
FieldTransform/CommitRequest/BatchGetRequest shapes, served over chi with
the same middleware stack the teacher's server.go assembles.

Grounded on timeoff/api's handlers.go/server.go/dto.go split (router in
server.go, request/response structs in dto.go, handler methods with a
shared Handler receiver in handlers.go); the DTOs themselves are new, since
the teacher's domain (PTO requests/balances) has no document/transaction
wire shape to generalize from.
*/
package api

import (
	"errors"
	"time"

	"github.com/warp/docuhearth/commit"
	"github.com/warp/docuhearth/precondition"
	"github.com/warp/docuhearth/store"
	"github.com/warp/docuhearth/transform"
	"github.com/warp/docuhearth/value"
)

var (
	errWriteEmpty          = errors.New("api: write has none of update/delete/transform set")
	errFieldTransformEmpty = errors.New("api: fieldTransform has no operation set")
)

// FirestoreDocumentDTO is the wire Document message: a name plus its fields
// map, using value.Value's own MarshalJSON/UnmarshalJSON for the Value
// union encoding (§3 Value, §6).
type FirestoreDocumentDTO struct {
	Name       string                 `json:"name"`
	Fields     map[string]value.Value `json:"fields,omitempty"`
	CreateTime string                 `json:"createTime,omitempty"`
	UpdateTime string                 `json:"updateTime,omitempty"`
}

// DocumentMaskDTO is the wire DocumentMask message (§3 "Field mask").
type DocumentMaskDTO struct {
	FieldPaths []string `json:"fieldPaths"`
}

// PreconditionDTO is the wire Precondition message (§3: "exists: bool, or
// updateTime: timestamp; not both").
type PreconditionDTO struct {
	Exists     *bool   `json:"exists,omitempty"`
	UpdateTime *string `json:"updateTime,omitempty"`
}

func (p *PreconditionDTO) toDomain() (precondition.Precondition, error) {
	if p == nil {
		return precondition.Precondition{}, nil
	}
	pc := precondition.Precondition{Exists: p.Exists}
	if p.UpdateTime != nil {
		t, err := time.Parse(time.RFC3339Nano, *p.UpdateTime)
		if err != nil {
			return precondition.Precondition{}, err
		}
		pc.UpdateTime = &t
	}
	return pc, nil
}

// FieldTransformDTO is one entry of the wire fieldTransforms list (§4.4).
// Exactly one operation field is populated, selecting the transform Kind.
type FieldTransformDTO struct {
	FieldPath             string        `json:"fieldPath"`
	SetToServerValue      *string       `json:"setToServerValue,omitempty"`
	Increment             *value.Value  `json:"increment,omitempty"`
	Maximum               *value.Value  `json:"maximum,omitempty"`
	Minimum               *value.Value  `json:"minimum,omitempty"`
	AppendMissingElements []value.Value `json:"appendMissingElements,omitempty"`
	RemoveAllFromArray    []value.Value `json:"removeAllFromArray,omitempty"`
}

func (f FieldTransformDTO) toDomain() (transform.FieldTransform, error) {
	ft := transform.FieldTransform{FieldPath: f.FieldPath}
	switch {
	case f.SetToServerValue != nil:
		ft.Kind = transform.ServerTime
	case f.Increment != nil:
		ft.Kind = transform.Increment
		ft.Operand = *f.Increment
	case f.Maximum != nil:
		ft.Kind = transform.Maximum
		ft.Operand = *f.Maximum
	case f.Minimum != nil:
		ft.Kind = transform.Minimum
		ft.Operand = *f.Minimum
	case f.AppendMissingElements != nil:
		ft.Kind = transform.AppendMissingElements
		ft.ArrayOperand = f.AppendMissingElements
	case f.RemoveAllFromArray != nil:
		ft.Kind = transform.RemoveAllFromArray
		ft.ArrayOperand = f.RemoveAllFromArray
	default:
		return transform.FieldTransform{}, errFieldTransformEmpty
	}
	return ft, nil
}

// WriteDTO is the wire Write message: a tagged union of update/delete/
// transform (§3 "Write operation").
type WriteDTO struct {
	Update *struct {
		Name   string                 `json:"name"`
		Fields map[string]value.Value `json:"fields"`
	} `json:"update,omitempty"`
	Delete *string `json:"delete,omitempty"`
	Transform *struct {
		Document string `json:"document"`
	} `json:"transform,omitempty"`

	UpdateMask       *DocumentMaskDTO    `json:"updateMask,omitempty"`
	UpdateTransforms []FieldTransformDTO `json:"updateTransforms,omitempty"`
	CurrentDocument  *PreconditionDTO    `json:"currentDocument,omitempty"`
}

func (w WriteDTO) toDomain() (commit.Write, error) {
	pc, err := w.CurrentDocument.toDomain()
	if err != nil {
		return commit.Write{}, err
	}
	transforms := make([]transform.FieldTransform, len(w.UpdateTransforms))
	for i, t := range w.UpdateTransforms {
		ft, err := t.toDomain()
		if err != nil {
			return commit.Write{}, err
		}
		transforms[i] = ft
	}

	switch {
	case w.Update != nil:
		cw := commit.Write{
			Kind:            commit.Update,
			Path:            w.Update.Name,
			Fields:          w.Update.Fields,
			FieldTransforms: transforms,
			Precondition:    pc,
		}
		if w.UpdateMask != nil {
			cw.UpdateMask = w.UpdateMask.FieldPaths
		}
		return cw, nil
	case w.Delete != nil:
		return commit.Write{Kind: commit.Delete, Path: *w.Delete, Precondition: pc}, nil
	case w.Transform != nil:
		return commit.Write{
			Kind:            commit.Transform,
			Path:            w.Transform.Document,
			FieldTransforms: transforms,
			Precondition:    pc,
		}, nil
	default:
		return commit.Write{}, errWriteEmpty
	}
}

// WriteResultDTO is one entry of the wire CommitResponse.writeResults list
// (§4.3 step 6).
type WriteResultDTO struct {
	UpdateTime       string        `json:"updateTime"`
	TransformResults []value.Value `json:"transformResults,omitempty"`
}

// CommitRequestDTO / CommitResponseDTO are the …/documents:commit payload
// (§6).
type CommitRequestDTO struct {
	Writes        []WriteDTO `json:"writes"`
	Transaction   string     `json:"transaction,omitempty"`
}

type CommitResponseDTO struct {
	WriteResults []WriteResultDTO `json:"writeResults"`
	CommitTime   string           `json:"commitTime"`
}

// BatchGetRequestDTO / BatchGetResponseDTO are the …/documents:batchGet
// payload (§4.5, §6). The response is a list index-aligned with Documents
// (§8 property 3). Transaction and NewTransaction are mutually exclusive;
// when NewTransaction is set, the engine begins a transaction and its id is
// stamped onto every BatchGetResultDTO.
type BatchGetRequestDTO struct {
	Documents      []string                    `json:"documents"`
	Mask           *DocumentMaskDTO            `json:"mask,omitempty"`
	Transaction    string                      `json:"transaction,omitempty"`
	NewTransaction *BeginTransactionRequestDTO `json:"newTransaction,omitempty"`
}

type BatchGetResultDTO struct {
	Found       *FirestoreDocumentDTO `json:"found,omitempty"`
	Missing     string                `json:"missing,omitempty"`
	ReadTime    string                `json:"readTime"`
	Transaction string                `json:"transaction,omitempty"`
}

// BeginTransactionRequestDTO / BeginTransactionResponseDTO are the
// …/documents:beginTransaction payload (§6).
type BeginTransactionRequestDTO struct {
	ReadOnly bool `json:"readOnly,omitempty"`
}

type BeginTransactionResponseDTO struct {
	Transaction string `json:"transaction"`
}

// RollbackRequestDTO is the …/documents:rollback payload; a successful
// rollback returns an empty JSON object (§6).
type RollbackRequestDTO struct {
	Transaction string `json:"transaction"`
}

// ErrorEnvelope is the wire error shape (§6: "{error:{code, message,
// status}}").
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func toDocumentDTO(path string, doc store.Document) FirestoreDocumentDTO {
	return FirestoreDocumentDTO{
		Name:       path,
		Fields:     doc.Fields,
		CreateTime: doc.CreateTime.UTC().Format(time.RFC3339Nano),
		UpdateTime: doc.UpdateTime.UTC().Format(time.RFC3339Nano),
	}
}
