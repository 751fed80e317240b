package domain

// Outcome is the terminal state of one memory's transfer.
type Outcome int

const (
	// OutcomeDownloaded means the bytes were fetched and written this run.
	OutcomeDownloaded Outcome = iota
	// OutcomeSkippedKnown means the dedup key was already in the state store.
	OutcomeSkippedKnown
	// OutcomeSkippedOnDisk means the target file already existed with content;
	// the key was reconciled into the state store.
	OutcomeSkippedOnDisk
	// OutcomeFailed means every attempt failed and a failure record was written.
	OutcomeFailed
)

// Skipped reports whether no transfer was needed.
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedKnown || o == OutcomeSkippedOnDisk
}
