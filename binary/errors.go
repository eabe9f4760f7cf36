package binary

import "fmt"

// DownloadError is returned when an artifact can't be retrieved: transport
// failures, non success responses and empty or truncated payloads.
type DownloadError struct {
	URL string
	// StatusCode is set when the server answered with a non success status.
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ArchiveLayoutError is returned when an extracted archive doesn't contain the
// executable at the expected location. Usually means the distributor changed
// the packaging of the tool.
type ArchiveLayoutError struct {
	Archive string
	Path    string
}

func (e *ArchiveLayoutError) Error() string {
	return fmt.Sprintf("archive %s doesn't contain %s; the packaging of the tool may have changed", e.Archive, e.Path)
}
