package models

import "time"

type Profile struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	Email            string  `gorm:"size:320;not null;uniqueIndex"`
	FirstName        *string `gorm:"size:255"`
	LastName         *string `gorm:"size:255"`
	OrgID            *string `gorm:"size:64"`
	LevelID          *string `gorm:"type:uuid;index"`
	Gender           *string `gorm:"size:16"`
	DateOfBirth      *string `gorm:"size:32"`
	Designation      *string `gorm:"size:255"`
	LocationID       *string `gorm:"type:uuid;index"`
	EmploymentTypeID *string `gorm:"type:uuid;index"`
	EmployeeRoleID   *string `gorm:"type:uuid;index"`
	EmployeeTypeID   *string `gorm:"type:uuid;index"`
	SupervisorID     *string `gorm:"type:uuid;index"`
	Role             string  `gorm:"size:16;not null;default:user"`
	Status           string  `gorm:"size:16;not null;default:active"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Profile) TableName() string {
	return "profiles"
}

type AuthCredential struct {
	UserID             string `gorm:"type:uuid;primaryKey"`
	PasswordHash       string `gorm:"size:255;not null"`
	MustChangePassword bool   `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (AuthCredential) TableName() string {
	return "auth_credentials"
}

type ProfileSBU struct {
	UserID    string `gorm:"type:uuid;primaryKey"`
	SBUID     string `gorm:"column:sbu_id;type:uuid;primaryKey"`
	IsPrimary bool   `gorm:"not null;default:false"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (ProfileSBU) TableName() string {
	return "profile_sbus"
}
