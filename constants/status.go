package constants

// DocStatus is the canonical status for rows in document_run.
type DocStatus string

// Stable values (store these exact strings in DB).
const (
	DocStatusQueued  DocStatus = "QUEUED"  // discovered but not yet processed
	DocStatusRunning DocStatus = "RUNNING" // in progress
	DocStatusParsed  DocStatus = "PARSED"  // extraction completed
	DocStatusFailed  DocStatus = "FAILED"  // terminal failure for this document
	DocStatusSkipped DocStatus = "SKIPPED" // already processed in a previous run
)
