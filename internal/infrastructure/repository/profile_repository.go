package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/mohammadpnp/profile-import/internal/infrastructure/db/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindProfileByID(ctx context.Context, id string) (*domain.Profile, error) {
	var row models.Profile
	err := r.db.WithContext(ctx).Select("id", "email", "role", "status").First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile by id: %w", err)
	}
	return &domain.Profile{
		ID:     row.ID,
		Email:  row.Email,
		Role:   domain.Role(row.Role),
		Status: domain.Status(row.Status),
	}, nil
}

// CreateProfile creates the profile and its login credential in one
// transaction. Only the bcrypt hash of the temporary password is stored.
func (r *ProfileRepository) CreateProfile(ctx context.Context, in domain.NewProfile) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.TemporaryPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}

	row := models.Profile{
		ID:        uuid.NewString(),
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      string(in.Role),
		Status:    string(domain.StatusActive),
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		credential := models.AuthCredential{
			UserID:             row.ID,
			PasswordHash:       string(hash),
			MustChangePassword: true,
		}
		if err := tx.Create(&credential).Error; err != nil {
			return fmt.Errorf("create credential: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

func (r *ProfileRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) error {
	columns := updateColumns(update)
	if len(columns) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) SetRole(ctx context.Context, id string, role domain.Role) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Update("role", string(role))
	if res.Error != nil {
		return fmt.Errorf("set role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

const profileViewSQL = `
SELECT
  p.id,
  p.email,
  COALESCE(p.first_name, '') AS first_name,
  COALESCE(p.last_name, '') AS last_name,
  COALESCE(p.org_id, '') AS org_id,
  COALESCE(l.name, '') AS level,
  COALESCE(p.gender, '') AS gender,
  COALESCE(p.date_of_birth, '') AS date_of_birth,
  COALESCE(p.designation, '') AS designation,
  COALESCE(loc.name, '') AS location,
  COALESCE(et.name, '') AS employment_type,
  COALESCE(er.name, '') AS employee_role,
  COALESCE(ety.name, '') AS employee_type,
  COALESCE(sup.email, '') AS supervisor_email,
  p.role,
  p.status,
  COALESCE((
    SELECT string_agg(s.name, ';' ORDER BY ps.is_primary DESC, ps.position ASC)
    FROM profile_sbus ps
    JOIN sbus s ON s.id = ps.sbu_id
    WHERE ps.user_id = p.id
  ), '') AS sbus,
  p.created_at,
  p.updated_at
FROM profiles p
LEFT JOIN levels l ON l.id = p.level_id
LEFT JOIN locations loc ON loc.id = p.location_id
LEFT JOIN employment_types et ON et.id = p.employment_type_id
LEFT JOIN employee_roles er ON er.id = p.employee_role_id
LEFT JOIN employee_types ety ON ety.id = p.employee_type_id
LEFT JOIN profiles sup ON sup.id = p.supervisor_id
`

type profileView struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	OrgID           string
	Level           string
	Gender          string
	DateOfBirth     string
	Designation     string
	Location        string
	EmploymentType  string
	EmployeeRole    string
	EmployeeType    string
	SupervisorEmail string
	Role            string
	Status          string
	SBUs            string `gorm:"column:sbus"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var rows []profileView
	if err := r.db.WithContext(ctx).Raw(profileViewSQL+"WHERE p.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("get profile by id: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	p := rows[0].toDomain()
	return &p, nil
}

func (r *ProfileRepository) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	var rows []profileView
	if err := r.db.WithContext(ctx).Raw(profileViewSQL + "ORDER BY p.created_at ASC, p.email ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	out := make([]domain.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (v profileView) toDomain() domain.Profile {
	var sbus []string
	if v.SBUs != "" {
		sbus = strings.Split(v.SBUs, domain.SBUSeparator)
	}
	return domain.Profile{
		ID:              v.ID,
		Email:           v.Email,
		FirstName:       v.FirstName,
		LastName:        v.LastName,
		OrgID:           v.OrgID,
		Level:           v.Level,
		SBUs:            sbus,
		Role:            domain.Role(v.Role),
		Gender:          v.Gender,
		DateOfBirth:     v.DateOfBirth,
		Designation:     v.Designation,
		Location:        v.Location,
		EmploymentType:  v.EmploymentType,
		EmployeeRole:    v.EmployeeRole,
		EmployeeType:    v.EmployeeType,
		SupervisorEmail: v.SupervisorEmail,
		Status:          domain.Status(v.Status),
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

func updateColumns(u domain.ProfileUpdate) map[string]any {
	columns := make(map[string]any)
	set := func(column string, value *string) {
		if value != nil {
			columns[column] = *value
		}
	}
	set("first_name", u.FirstName)
	set("last_name", u.LastName)
	set("org_id", u.OrgID)
	set("level_id", u.LevelID)
	set("date_of_birth", u.DateOfBirth)
	set("designation", u.Designation)
	set("location_id", u.LocationID)
	set("employment_type_id", u.EmploymentTypeID)
	set("employee_role_id", u.EmployeeRoleID)
	set("employee_type_id", u.EmployeeTypeID)
	set("supervisor_id", u.SupervisorID)
	if u.Gender != nil {
		columns["gender"] = string(*u.Gender)
	}
	if u.Status != nil {
		columns["status"] = string(*u.Status)
	}
	return columns
}
