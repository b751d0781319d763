package errors

import "fmt"

const (
	HttpInternalError        = "internal_error"
	HttpInvalidJsonError     = "invalid_json"
	HttpInvalidCategoryError = "invalid_category"
	HttpInvalidScopeError    = "invalid_scope"
	HttpStorageWriteError    = "storage_write_failed"
	HttpRateLimitedError     = "rate_limited"
)

// ErrorResponse is the error response body for every HTTP API error.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// StorageReadError reports a durable read that failed or returned unparsable data.
// The event store recovers from it by starting with an empty log.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("storage read %q failed: %v", e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// StorageWriteError reports a durable write that failed after the in-memory log
// already changed. The change stays visible for the rest of the process.
type StorageWriteError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write %q failed after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }
