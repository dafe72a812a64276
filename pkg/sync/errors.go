package sync

import (
	"fmt"
	"strings"
)

// Category classifies why a record was rejected.
type Category string

const (
	// CategoryStructural marks records that are malformed on their own:
	// missing fields, bad enum values, duplicates inside the batch.
	CategoryStructural Category = "structural"
	// CategoryDependency marks records that reference an entity which does
	// not exist or is archived.
	CategoryDependency Category = "dependency"
	// CategoryConflict marks records that contradict stored state: identity
	// keys claimed by different rows, or changes to fixed fields.
	CategoryConflict Category = "conflict"
	// CategoryConstraint marks database constraint violations surfaced
	// during apply.
	CategoryConstraint Category = "constraint"
)

// RecordError is one rejected record. Index is the record's position in the
// submitted batch and Key its natural identifier (video_uid, user_id, title,
// name) when one was parsed.
type RecordError struct {
	Category Category `json:"category"`
	Index    int      `json:"index"`
	Key      string   `json:"key,omitempty"`
	Message  string   `json:"message"`
}

func (e *RecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("record %d (%s): %s", e.Index, e.Key, e.Message)
	}
	return fmt.Sprintf("record %d: %s", e.Index, e.Message)
}

func structuralErr(index int, key, format string, args ...any) *RecordError {
	return &RecordError{Category: CategoryStructural, Index: index, Key: key, Message: fmt.Sprintf(format, args...)}
}

func dependencyErr(index int, key, format string, args ...any) *RecordError {
	return &RecordError{Category: CategoryDependency, Index: index, Key: key, Message: fmt.Sprintf(format, args...)}
}

func conflictErr(index int, key, format string, args ...any) *RecordError {
	return &RecordError{Category: CategoryConflict, Index: index, Key: key, Message: fmt.Sprintf(format, args...)}
}

// BatchErrors accumulates every rejected record of one batch. A batch with
// any error is rejected as a whole; nothing is written.
type BatchErrors struct {
	Errs []*RecordError `json:"errors"`
}

func (b *BatchErrors) add(e *RecordError) {
	b.Errs = append(b.Errs, e)
}

// Len returns the number of rejected records.
func (b *BatchErrors) Len() int {
	return len(b.Errs)
}

func (b *BatchErrors) Error() string {
	const maxShown = 5

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d record(s) rejected", len(b.Errs))
	for i, e := range b.Errs {
		if i == maxShown {
			fmt.Fprintf(&sb, "; and %d more", len(b.Errs)-maxShown)
			break
		}
		sb.WriteString("; ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}
