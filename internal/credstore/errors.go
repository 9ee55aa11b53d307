package credstore

// StoreLoadError indicates the credentials document could not be read or parsed.
// It is fatal at startup.
type StoreLoadError struct {
	Path  string
	Cause error
}

func (e *StoreLoadError) Error() string {
	return "load credentials from " + e.Path + ": " + e.Cause.Error()
}

func (e *StoreLoadError) Unwrap() error {
	return e.Cause
}

// StoreSaveError indicates a mutation could not be written to disk. The
// mutation is not committed.
type StoreSaveError struct {
	Path  string
	Cause error
}

func (e *StoreSaveError) Error() string {
	return "save credentials to " + e.Path + ": " + e.Cause.Error()
}

func (e *StoreSaveError) Unwrap() error {
	return e.Cause
}
