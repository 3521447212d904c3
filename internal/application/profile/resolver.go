package profile

import (
	"context"
	"errors"
	"strings"
	"sync"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"go.uber.org/zap"
)

type entityFinder interface {
	FindActiveEntityByName(ctx context.Context, kind domain.EntityKind, name string) (string, error)
}

type entityKey struct {
	kind domain.EntityKind
	name string
}

type entityHit struct {
	id string
	ok bool
}

// Resolver maps human-readable reference names to stable identifiers.
// Resolution is best effort: unknown, inactive and failed lookups all come
// back as not found and never fail the row. Answers are memoised for the
// lifetime of the resolver, which is one pass over a file: the preview and
// the apply of a session each get their own.
type Resolver struct {
	finder entityFinder
	logger *zap.Logger

	mu    sync.Mutex
	cache map[entityKey]entityHit
}

func NewResolver(finder entityFinder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		finder: finder,
		logger: logger,
		cache:  make(map[entityKey]entityHit),
	}
}

func (r *Resolver) Resolve(ctx context.Context, kind domain.EntityKind, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	key := entityKey{kind: kind, name: name}

	r.mu.Lock()
	hit, cached := r.cache[key]
	r.mu.Unlock()
	if cached {
		return hit.id, hit.ok
	}

	id, err := r.finder.FindActiveEntityByName(ctx, kind, name)
	switch {
	case err == nil && id != "":
		hit = entityHit{id: id, ok: true}
	case err == nil, errors.Is(err, domain.ErrEntityNotFound):
		hit = entityHit{}
	default:
		// transient failures are not cached so a later row may still resolve
		r.logger.Warn("entity lookup failed",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Error(err))
		return "", false
	}

	r.mu.Lock()
	r.cache[key] = hit
	r.mu.Unlock()

	if !hit.ok {
		r.logger.Debug("entity reference not resolved", zap.String("kind", string(kind)), zap.String("name", name))
	}
	return hit.id, hit.ok
}

// Forget drops memoised answers for name so the next Resolve asks the store
// again. Names are matched case-insensitively.
func (r *Resolver) Forget(kind domain.EntityKind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.cache {
		if key.kind == kind && strings.EqualFold(key.name, name) {
			delete(r.cache, key)
		}
	}
}

// ResolveRef is Resolve for optional row fields.
func (r *Resolver) ResolveRef(ctx context.Context, kind domain.EntityKind, name *string) *string {
	if name == nil {
		return nil
	}
	id, ok := r.Resolve(ctx, kind, *name)
	if !ok {
		return nil
	}
	return &id
}

// ResolveSBUs keeps the names that exist as active SBUs, in their original
// order and without duplicates. The first surviving entry is primary.
func (r *Resolver) ResolveSBUs(ctx context.Context, names []string) []domain.SBUAssignment {
	assignments := make([]domain.SBUAssignment, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		id, ok := r.Resolve(ctx, domain.EntitySBU, name)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		assignments = append(assignments, domain.SBUAssignment{
			SBUID:     id,
			Name:      name,
			IsPrimary: len(assignments) == 0,
		})
	}
	return assignments
}

// Warm resolves every distinct reference of rows once.
func (r *Resolver) Warm(ctx context.Context, rows []domain.ImportRow) {
	for _, row := range rows {
		if ctx.Err() != nil {
			return
		}
		for kind, name := range rowRefs(row) {
			r.ResolveRef(ctx, kind, name)
		}
		for _, sbu := range row.SBUs {
			r.Resolve(ctx, domain.EntitySBU, sbu)
		}
	}
}

func rowRefs(row domain.ImportRow) map[domain.EntityKind]*string {
	return map[domain.EntityKind]*string{
		domain.EntityLevel:          row.Level,
		domain.EntityLocation:       row.Location,
		domain.EntityEmploymentType: row.EmploymentType,
		domain.EntityEmployeeRole:   row.EmployeeRole,
		domain.EntityEmployeeType:   row.EmployeeType,
		domain.EntitySupervisor:     row.SupervisorEmail,
	}
}
