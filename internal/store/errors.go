package store

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/cadence/internal/domain"
)

var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrNoIndex is returned when a query names a field the table does not index.
	ErrNoIndex = errors.New("field is not indexed")
	// ErrStorageFault matches every *Fault via errors.Is.
	ErrStorageFault = errors.New("storage fault")
)

// Fault reports a failure of the underlying storage medium. It is the one
// error class the sync layer never swallows: domain callers receive it
// synchronously.
type Fault struct {
	Op    string
	Table domain.Table
	Err   error
}

func (f *Fault) Error() string {
	if f.Table == "" {
		return fmt.Sprintf("storage fault: %s: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("storage fault: %s %s: %v", f.Op, f.Table, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

func (f *Fault) Is(target error) bool { return target == ErrStorageFault }

func fault(op string, t domain.Table, err error) error {
	return &Fault{Op: op, Table: t, Err: err}
}
