package types

import "context"

// SortSpec is one server-side ordering entry with a resolved wire field URI.
type SortSpec struct {
	FieldURI   string
	Descending bool
}

// FindRequest is one paged item query. Restriction nil means unrestricted.
// Fields lists the wire URIs to project; IDOnly requests the id-only shape
// regardless of Fields.
type FindRequest struct {
	RequestID   string
	FolderID    string
	Shape       string // concrete item subtype to return
	Restriction *Restriction
	Fields      []string
	IDOnly      bool
	Sort        []SortSpec
	Offset      int
	PageSize    int
}

// FindResponse is one result page. NextOffset is the continuation token for
// the following request; Done signals the server has no more results.
type FindResponse struct {
	Items      []Item
	NextOffset int
	Done       bool
}

// BulkKind selects the bulk mutation operation.
type BulkKind int

const (
	BulkCreate BulkKind = iota
	BulkUpdate
	BulkDelete
)

func (k BulkKind) String() string {
	switch k {
	case BulkCreate:
		return "create"
	case BulkUpdate:
		return "update"
	case BulkDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// BulkItem is one item in a bulk request. ID is empty for creates; Fields
// carries the attribute values to write (nil for deletes).
type BulkItem struct {
	ID     ItemID
	Fields map[string]any
}

// BulkRequest is one chunk of a bulk mutation.
type BulkRequest struct {
	RequestID string
	FolderID  string
	Kind      BulkKind
	Items     []BulkItem
}

// BulkResult is the per-item outcome within a successfully dispatched chunk.
// Err is nil on success; on failure it is a *errors.RemoteError describing
// the item-level fault.
type BulkResult struct {
	ID  ItemID
	Err error
}

// BulkResponse carries one BulkResult per request item, in request order.
type BulkResponse struct {
	Results []BulkResult
}

// BatchOutcome correlates one submitted item with its result. Index is the
// item's position in the original, un-chunked input.
type BatchOutcome struct {
	Index int
	ID    ItemID
	Err   error
}

// OK reports whether the item was applied successfully.
func (o BatchOutcome) OK() bool { return o.Err == nil }

// Dispatcher is the external request-dispatch service. Implementations own
// SOAP envelope construction, sessions and transport; this module only
// builds requests and interprets responses. A returned error applies to the
// whole request; item-level bulk failures travel inside BulkResponse.
type Dispatcher interface {
	FindItems(ctx context.Context, req *FindRequest) (*FindResponse, error)
	ExecuteBulk(ctx context.Context, req *BulkRequest) (*BulkResponse, error)
}
