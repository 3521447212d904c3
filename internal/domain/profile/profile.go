package profile

import "time"

// Profile is a stored user profile with its references expanded to names,
// which is the shape exports need.
type Profile struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	OrgID           string
	Level           string
	SBUs            []string
	Role            Role
	Gender          string
	DateOfBirth     string
	Designation     string
	Location        string
	EmploymentType  string
	EmployeeRole    string
	EmployeeType    string
	SupervisorEmail string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewProfile carries what is needed to create an auth account and profile.
type NewProfile struct {
	Email             string
	TemporaryPassword string
	FirstName         *string
	LastName          *string
	Role              Role
}

// ProfileUpdate holds the fields to write; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName        *string
	LastName         *string
	OrgID            *string
	LevelID          *string
	Gender           *Gender
	DateOfBirth      *string
	Designation      *string
	LocationID       *string
	EmploymentTypeID *string
	EmployeeRoleID   *string
	EmployeeTypeID   *string
	SupervisorID     *string
	Status           *Status
}

// Empty reports whether the update would write nothing.
func (u ProfileUpdate) Empty() bool {
	return u == ProfileUpdate{}
}

type EntityKind string

const (
	EntityLevel          EntityKind = "level"
	EntityLocation       EntityKind = "location"
	EntityEmploymentType EntityKind = "employment_type"
	EntityEmployeeRole   EntityKind = "employee_role"
	EntityEmployeeType   EntityKind = "employee_type"
	EntitySBU            EntityKind = "sbu"
	EntitySupervisor     EntityKind = "supervisor"
)

// SBUAssignment is one resolved SBU membership, in assignment order.
type SBUAssignment struct {
	SBUID     string
	Name      string
	IsPrimary bool
}
