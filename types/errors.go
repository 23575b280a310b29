package types

import "fmt"

// RecordError is returned when recording a metric fails.
// Exception recording always ignores it so failures never feed back into
// the pipeline that produced them.
type RecordError struct {
	Name string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("error recording metric named: %s: %v", e.Name, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError wraps err for the named metric
func NewRecordError(name string, err error) error {
	if err == nil {
		return nil
	}
	return &RecordError{Name: name, Err: err}
}
