// Package repositories implements SQLite persistence for lapx history.
//
// Key Implementations:
//   - [ProjectRepository] : recently opened projects, keyed by .lap path
//   - [TransferRepository] : log of cloud uploads and downloads
//
// Both repositories soft delete via deleted_at timestamps and exclude deleted rows from queries.
// Transfer entries carry a sequence number (transfer #12) from the transfers_sequence table,
// allocated by [NextSequence].
package repositories
