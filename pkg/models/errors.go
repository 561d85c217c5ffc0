package models

import "fmt"

// DataFetchError kind discriminator values.
const (
	FetchErrInvalidCode = "invalid_code"
	FetchErrNetwork     = "network"
	FetchErrPermission  = "permission"
	FetchErrUnknown     = "unknown"
)

// DataFetchError is the structured failure of a data collector. The
// orchestrator turns it into a user-facing explanation rather than an error
// event.
type DataFetchError struct {
	Kind    string `json:"kind"`
	Context string `json:"context,omitempty"`
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("data fetch failed (%s): %s", e.Kind, e.Context)
}

// NewDataFetchError builds a DataFetchError with the given kind and context.
func NewDataFetchError(kind, format string, args ...any) *DataFetchError {
	return &DataFetchError{Kind: kind, Context: fmt.Sprintf(format, args...)}
}
