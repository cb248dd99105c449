package vault

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the in-memory record set of an unlocked vault. Records keep
// insertion order. Site names are not unique: adding a second record for the
// same site keeps both.
type Repository struct {
	records []Record
	rev     uint64
	now     func() time.Time
}

// NewRepository takes ownership of records.
func NewRepository(records []Record) *Repository {
	if records == nil {
		records = []Record{}
	}
	return &Repository{records: records, now: time.Now}
}

func validateSite(site string) error {
	if strings.TrimSpace(site) == "" {
		return fmt.Errorf("%w: site name is required", ErrValidation)
	}
	return nil
}

// Add appends r and returns the stored copy with its ID and timestamps set.
func (r *Repository) Add(rec Record) (Record, error) {
	if err := validateSite(rec.SiteName); err != nil {
		return Record{}, err
	}
	rec = rec.clone()
	rec.ID = uuid.NewString()
	now := r.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = now
	r.records = append(r.records, rec)
	r.rev++
	return rec.clone(), nil
}

// List returns every record in insertion order, passwords included.
func (r *Repository) List() []Record {
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.clone()
	}
	return out
}

// SearchBySite returns the records whose site name contains query,
// ignoring case, in insertion order.
func (r *Repository) SearchBySite(query string) []Record {
	q := strings.ToLower(query)
	out := []Record{}
	for _, rec := range r.records {
		if strings.Contains(strings.ToLower(rec.SiteName), q) {
			out = append(out, rec.clone())
		}
	}
	return out
}

// FindBySite returns the records whose site name equals site, ignoring case.
func (r *Repository) FindBySite(site string) []Record {
	out := []Record{}
	for _, rec := range r.records {
		if strings.EqualFold(rec.SiteName, site) {
			out = append(out, rec.clone())
		}
	}
	return out
}

func (r *Repository) Get(id string) (Record, bool) {
	i := r.index(id)
	if i < 0 {
		return Record{}, false
	}
	return r.records[i].clone(), true
}

// Update applies fn to a copy of the record and stores the result. ID and
// CreatedAt cannot be changed by fn.
func (r *Repository) Update(id string, fn func(*Record)) (Record, error) {
	i := r.index(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	old := r.records[i]
	rec := old.clone()
	fn(&rec)
	if err := validateSite(rec.SiteName); err != nil {
		return Record{}, err
	}
	// fn may have assigned a caller-owned password buffer.
	rec = rec.clone()
	rec.ID = old.ID
	rec.CreatedAt = old.CreatedAt
	rec.UpdatedAt = r.now().UTC()
	Zero(old.Password)
	r.records[i] = rec
	r.rev++
	return rec.clone(), nil
}

func (r *Repository) Remove(id string) error {
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	Zero(r.records[i].Password)
	r.records = append(r.records[:i], r.records[i+1:]...)
	r.rev++
	return nil
}

func (r *Repository) Len() int { return len(r.records) }

// Revision increases on every mutation.
func (r *Repository) Revision() uint64 { return r.rev }

func (r *Repository) index(id string) int {
	for i, rec := range r.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) wipe() {
	for i := range r.records {
		Zero(r.records[i].Password)
	}
	r.records = nil
}
