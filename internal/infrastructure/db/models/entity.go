package models

import "time"

// Entity is the shared shape of the lookup tables a profile references by
// name in import files.
type Entity struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"size:255;not null;index"`
	Status    string `gorm:"size:16;not null;default:active"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Level struct{ Entity }

func (Level) TableName() string { return "levels" }

type Location struct{ Entity }

func (Location) TableName() string { return "locations" }

type EmploymentType struct{ Entity }

func (EmploymentType) TableName() string { return "employment_types" }

type EmployeeRole struct{ Entity }

func (EmployeeRole) TableName() string { return "employee_roles" }

type EmployeeType struct{ Entity }

func (EmployeeType) TableName() string { return "employee_types" }

type SBU struct{ Entity }

func (SBU) TableName() string { return "sbus" }

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Level{},
		&Location{},
		&EmploymentType{},
		&EmployeeRole{},
		&EmployeeType{},
		&SBU{},
		&Profile{},
		&AuthCredential{},
		&ProfileSBU{},
		&ImportRun{},
	}
}
