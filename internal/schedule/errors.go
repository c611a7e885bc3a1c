package schedule

import "fmt"

// IntegrityError reports a duplicate key, a row-count mismatch after a join,
// or out-of-sequence stop numbering. It indicates corrupt or mismatched
// source tables and always aborts assembly.
type IntegrityError struct {
	Table  string
	Key    string
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("integrity violation in %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("integrity violation in %s for key %s: %s", e.Table, e.Key, e.Reason)
}

// LookupError reports a row referencing an identifier with no match in the
// corresponding entity table.
type LookupError struct {
	Kind string // "trip" or "stop"
	Key  string
	Ref  string // where the dangling reference came from
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s references unknown %s %q", e.Ref, e.Kind, e.Key)
}
