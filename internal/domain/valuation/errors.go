package valuation

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrFetch         = errors.New("player data fetch failed")
	ErrParse         = errors.New("malformed player data envelope")
)

// DataIntegrityError reports a single source record that cannot be turned
// into a classified PlayerRecord. The record is dropped, the batch continues.
type DataIntegrityError struct {
	Index    int
	RecordID string
	Name     string
	Field    string
	Reason   string
}

func (e *DataIntegrityError) Error() string {
	subject := e.Name
	if subject == "" {
		subject = e.RecordID
	}
	if subject == "" {
		return fmt.Sprintf("data integrity: record #%d field=%s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("data integrity: record #%d (%s) field=%s: %s", e.Index, subject, e.Field, e.Reason)
}

func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// FetchError is a network or HTTP level failure talking to the data source.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: upstream status=%d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// ParseError means the upstream answered but the envelope could not be decoded.
type ParseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
