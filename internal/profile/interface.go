package profile

import "context"

// DefaultLimit caps listings that do not ask for a count.
const DefaultLimit = 100

// Repository persists profiles.
//
// Writes are create-only. Lookups return nil without an error when the
// id is unknown, escapes the storage location or points at a malformed
// record.
type Repository interface {
	Write(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindAll(ctx context.Context, q Query) ([]*Profile, error)
	Clear(ctx context.Context) error
}

// Limit selects Count records after skipping Offset.
type Limit struct {
	Count  int
	Offset int
}

// Query filters and pages a listing. Listings are always newest first,
// OrderBy is accepted for interface compatibility and ignored.
type Query struct {
	Where   map[string]any
	OrderBy map[string]string
	Limit   *Limit
}

func (q Query) bounds() (count, offset int) {
	count, offset = DefaultLimit, 0
	if q.Limit != nil {
		count, offset = q.Limit.Count, q.Limit.Offset
	}
	if count < 0 {
		count = 0
	}
	if offset < 0 {
		offset = 0
	}
	return count, offset
}
