package profile

import (
	"context"
	"time"
)

// ProfileStore is the persistence surface the import pipeline depends on.
// FindProfileByID returns ErrProfileNotFound when no record exists and
// FindActiveEntityByName returns ErrEntityNotFound for unknown or inactive
// names.
type ProfileStore interface {
	FindProfileByID(ctx context.Context, id string) (*Profile, error)
	CreateProfile(ctx context.Context, in NewProfile) (string, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	SetRole(ctx context.Context, id string, role Role) error
	FindActiveEntityByName(ctx context.Context, kind EntityKind, name string) (string, error)
	ReplaceSBUAssignments(ctx context.Context, userID string, assignments []SBUAssignment) error
}

type ProfileQueryRepository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
}

type ImportRunRepository interface {
	Start(ctx context.Context, run ImportRun) (string, error)
	UpdateProgress(ctx context.Context, runID string, progress BatchProgress) error
	Complete(ctx context.Context, runID string, summary BatchSummary) error
	Fail(ctx context.Context, runID string, reason string) error
}

// ProgressPublisher fans out batch progress snapshots of a session.
type ProgressPublisher interface {
	Publish(ctx context.Context, sessionID string, progress BatchProgress) error
	Expire(ctx context.Context, sessionID string, after time.Duration) error
}
