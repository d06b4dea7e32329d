package model

import "sort"

// BulkResult maps every failed id of a bulk operation to its error.
// Ids that are absent succeeded.
type BulkResult struct {
	errs map[string]error
}

// NewBulkResult returns an empty result
func NewBulkResult() *BulkResult {
	return &BulkResult{errs: make(map[string]error)}
}

// Add records the failure of id. A nil error is ignored.
func (r *BulkResult) Add(id string, err error) {
	if err == nil {
		return
	}
	r.errs[id] = err
}

// Merge copies all failures of other into r
func (r *BulkResult) Merge(other *BulkResult) {
	for id, err := range other.errs {
		r.errs[id] = err
	}
}

// ContainsErrors reports whether any id failed
func (r *BulkResult) ContainsErrors() bool {
	return len(r.errs) > 0
}

// Err returns the error recorded for id, or nil if it succeeded
func (r *BulkResult) Err(id string) error {
	return r.errs[id]
}

// FailedIDs returns the failed ids in sorted order
func (r *BulkResult) FailedIDs() []string {
	ids := make([]string, 0, len(r.errs))
	for id := range r.errs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Errors returns a copy of the id to error map
func (r *BulkResult) Errors() map[string]error {
	out := make(map[string]error, len(r.errs))
	for id, err := range r.errs {
		out[id] = err
	}
	return out
}
