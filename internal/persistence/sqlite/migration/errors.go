package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	// ErrVersionConflict means the recorded history no longer lines up with
	// the embedded files: a gap in numbering or a recorded version that is gone.
	ErrVersionConflict  = errors.New("migration version conflict")
	ErrInvalidVersion   = errors.New("invalid migration version")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch means an applied schema file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// StepError records which schema version and step failed. Source is the file
// for scanning steps and the SQL statement for database steps.
type StepError struct {
	Version string
	Source  string
	Step    string
	DB      bool
	Err     error
}

func (e *StepError) Error() string {
	where := "schema"
	if e.Version != "" {
		where = "schema version " + e.Version
	}
	if e.DB {
		return fmt.Sprintf("%s: database %s: %v", where, e.Step, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s: %v", where, e.Source, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func fileError(version, path, step string, err error) error {
	return &StepError{Version: version, Source: path, Step: step, Err: err}
}

func dbError(version, query, step string, err error) error {
	return &StepError{Version: version, Source: query, Step: step, DB: true, Err: err}
}
