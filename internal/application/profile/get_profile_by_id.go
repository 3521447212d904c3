package profile

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
)

type GetProfileByIDInput struct {
	ID string
}

type GetProfileByIDOutput struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	OrgID           string   `json:"org_id"`
	Level           string   `json:"level"`
	SBUs            []string `json:"sbus"`
	Role            string   `json:"role"`
	Gender          string   `json:"gender"`
	DateOfBirth     string   `json:"date_of_birth"`
	Designation     string   `json:"designation"`
	Location        string   `json:"location"`
	EmploymentType  string   `json:"employment_type"`
	EmployeeRole    string   `json:"employee_role"`
	EmployeeType    string   `json:"employee_type"`
	SupervisorEmail string   `json:"supervisor_email"`
	Status          string   `json:"status"`
}

type GetProfileByID interface {
	Execute(ctx context.Context, in GetProfileByIDInput) (GetProfileByIDOutput, error)
}

type profileGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}

type getProfileByID struct {
	repo profileGetter
}

func NewGetProfileByID(repo profileGetter) GetProfileByID {
	return &getProfileByID{repo: repo}
}

func (uc *getProfileByID) Execute(ctx context.Context, in GetProfileByIDInput) (GetProfileByIDOutput, error) {
	if !domain.ValidUUID(in.ID) {
		return GetProfileByIDOutput{}, ErrInvalidProfileID
	}

	p, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return GetProfileByIDOutput{}, ErrProfileNotFound
		}
		return GetProfileByIDOutput{}, fmt.Errorf("%w: %v", ErrGetProfileByID, err)
	}

	sbus := p.SBUs
	if sbus == nil {
		sbus = []string{}
	}

	return GetProfileByIDOutput{
		ID:              p.ID,
		Email:           p.Email,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		OrgID:           p.OrgID,
		Level:           p.Level,
		SBUs:            sbus,
		Role:            string(p.Role),
		Gender:          p.Gender,
		DateOfBirth:     p.DateOfBirth,
		Designation:     p.Designation,
		Location:        p.Location,
		EmploymentType:  p.EmploymentType,
		EmployeeRole:    p.EmployeeRole,
		EmployeeType:    p.EmployeeType,
		SupervisorEmail: p.SupervisorEmail,
		Status:          string(p.Status),
	}, nil
}
