package repository

import (
	"context"
	"fmt"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"gorm.io/gorm"
)

type entityLookup struct {
	table       string
	column      string
	activeOnly  bool
	statusValue string
}

var entityLookups = map[domain.EntityKind]entityLookup{
	domain.EntityLevel:          {table: "levels", column: "name", activeOnly: true, statusValue: "active"},
	domain.EntityLocation:       {table: "locations", column: "name"},
	domain.EntityEmploymentType: {table: "employment_types", column: "name", activeOnly: true, statusValue: "active"},
	domain.EntityEmployeeRole:   {table: "employee_roles", column: "name", activeOnly: true, statusValue: "active"},
	domain.EntityEmployeeType:   {table: "employee_types", column: "name", activeOnly: true, statusValue: "active"},
	domain.EntitySBU:            {table: "sbus", column: "name", activeOnly: true, statusValue: "active"},
	domain.EntitySupervisor:     {table: "profiles", column: "email", activeOnly: true, statusValue: string(domain.StatusActive)},
}

type EntityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// FindActiveEntityByName matches name exactly. Locations have no status and
// match on name alone.
func (r *EntityRepository) FindActiveEntityByName(ctx context.Context, kind domain.EntityKind, name string) (string, error) {
	lookup, ok := entityLookups[kind]
	if !ok {
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}

	query := r.db.WithContext(ctx).
		Table(lookup.table).
		Select("id").
		Where(lookup.column+" = ?", name)
	if lookup.activeOnly {
		query = query.Where("status = ?", lookup.statusValue)
	}

	var ids []string
	if err := query.Limit(1).Pluck("id", &ids).Error; err != nil {
		return "", fmt.Errorf("find %s by name: %w", kind, err)
	}
	if len(ids) == 0 {
		return "", domain.ErrEntityNotFound
	}
	return ids[0], nil
}
