// Package store persists verification status, the append-only attempt log and
// face embeddings.
package store

import "faceguard/internal/verification/models"

// Commit is one atomic write of the state machine: the status CAS plus the
// attempt row and the new embedding that belong to it.
type Commit struct {
	Status *models.VerificationStatus
	// ExpectedVersion is the version read before mutating. Zero inserts.
	ExpectedVersion int64
	Attempt         *models.Attempt
	Embedding       *models.FaceEmbedding
}
