package installer

import "fmt"

// DownloadError covers network failures and archive integrity failures.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError is returned when an archive is corrupt or one of its entries
// is refused by the extraction filter.
type ExtractionError struct {
	Archive string
	Entry   string // empty when the archive itself could not be read
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
	}
	return fmt.Sprintf("extract %s: entry %q: %v", e.Archive, e.Entry, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
