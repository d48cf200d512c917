package service

import "fmt"

// IdentityError: anonymous identity acquisition failed. Nothing was
// uploaded or written.
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity acquisition failed: %v", e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// UploadError: the photo blob did not land. The submission is aborted so
// the document write never references a missing blob.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("photo upload to %s failed: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError: the document write was rejected, typically by an
// access rule. Carries the attempted path, operation, and payload so the
// rejection can be diagnosed out of band; callers log it, never swallow
// it.
type PersistenceError struct {
	Path      string
	Operation string
	Payload   map[string]any
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write to %s (%s) rejected: %v", e.Path, e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
