package profile

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// Column headers of the import/export file, in file order.
const (
	ColumnID              = "ID"
	ColumnEmail           = "Email"
	ColumnFirstName       = "First Name"
	ColumnLastName        = "Last Name"
	ColumnOrgID           = "Org ID"
	ColumnLevel           = "Level"
	ColumnSBUs            = "SBUs"
	ColumnRole            = "Role"
	ColumnGender          = "Gender"
	ColumnDateOfBirth     = "Date of Birth"
	ColumnDesignation     = "Designation"
	ColumnLocation        = "Location"
	ColumnEmploymentType  = "Employment Type"
	ColumnEmployeeRole    = "Employee Role"
	ColumnEmployeeType    = "Employee Type"
	ColumnSupervisorEmail = "Supervisor Email"
	ColumnStatus          = "Status"
)

// Columns lists every header in the order used by exports.
var Columns = []string{
	ColumnID,
	ColumnEmail,
	ColumnFirstName,
	ColumnLastName,
	ColumnOrgID,
	ColumnLevel,
	ColumnSBUs,
	ColumnRole,
	ColumnGender,
	ColumnDateOfBirth,
	ColumnDesignation,
	ColumnLocation,
	ColumnEmploymentType,
	ColumnEmployeeRole,
	ColumnEmployeeType,
	ColumnSupervisorEmail,
	ColumnStatus,
}

// SBUSeparator separates names inside the SBUs column.
const SBUSeparator = ";"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// ImportRow is one schema-conformant row of an upload. Optional columns are
// nil when the cell was empty.
type ImportRow struct {
	Row             int
	ID              *string
	Email           string
	FirstName       *string
	LastName        *string
	OrgID           *string
	Level           *string
	SBUs            []string
	Role            *Role
	Gender          *Gender
	DateOfBirth     *string
	Designation     *string
	Location        *string
	EmploymentType  *string
	EmployeeRole    *string
	EmployeeType    *string
	SupervisorEmail *string
	Status          *Status
}

// EffectiveRole is the role a newly created profile receives.
func (r ImportRow) EffectiveRole() Role {
	if r.Role == nil {
		return RoleUser
	}
	return *r.Role
}

// HasID reports whether the row targets an existing profile.
func (r ImportRow) HasID() bool {
	return r.ID != nil
}

// ParseImportRow validates one raw row keyed by column header. It returns
// every field error of the row, formatted "<field>: <message>".
func ParseImportRow(row int, raw map[string]string) (ImportRow, []string) {
	var errs []string
	get := func(column string) *string {
		value := strings.TrimSpace(raw[column])
		if value == "" {
			return nil
		}
		return &value
	}

	out := ImportRow{
		Row:            row,
		FirstName:      get(ColumnFirstName),
		LastName:       get(ColumnLastName),
		OrgID:          get(ColumnOrgID),
		Level:          get(ColumnLevel),
		DateOfBirth:    get(ColumnDateOfBirth),
		Designation:    get(ColumnDesignation),
		Location:       get(ColumnLocation),
		EmploymentType: get(ColumnEmploymentType),
		EmployeeRole:   get(ColumnEmployeeRole),
		EmployeeType:   get(ColumnEmployeeType),
	}

	if email := get(ColumnEmail); email == nil {
		errs = append(errs, "email: Required")
	} else if !ValidEmail(*email) {
		errs = append(errs, "email: Invalid email")
	} else {
		out.Email = *email
	}

	if id := get(ColumnID); id != nil {
		if !ValidUUID(*id) {
			errs = append(errs, "id: Invalid uuid")
		} else {
			out.ID = id
		}
	}

	if supervisor := get(ColumnSupervisorEmail); supervisor != nil {
		if !ValidEmail(*supervisor) {
			errs = append(errs, "supervisorEmail: Invalid email")
		} else {
			out.SupervisorEmail = supervisor
		}
	}

	if value := get(ColumnRole); value != nil {
		role := Role(strings.ToLower(*value))
		if role != RoleAdmin && role != RoleUser {
			errs = append(errs, "role: Invalid enum value. Expected 'admin' | 'user', received '"+*value+"'")
		} else {
			out.Role = &role
		}
	}

	if value := get(ColumnGender); value != nil {
		gender := Gender(strings.ToLower(*value))
		switch gender {
		case GenderMale, GenderFemale, GenderOther:
			out.Gender = &gender
		default:
			errs = append(errs, "gender: Invalid enum value. Expected 'male' | 'female' | 'other', received '"+*value+"'")
		}
	}

	if value := get(ColumnStatus); value != nil {
		status := Status(strings.ToLower(*value))
		if status != StatusActive && status != StatusDisabled {
			errs = append(errs, "status: Invalid enum value. Expected 'active' | 'disabled', received '"+*value+"'")
		} else {
			out.Status = &status
		}
	}

	if value := get(ColumnSBUs); value != nil {
		out.SBUs = SplitSBUs(*value)
	}

	if len(errs) > 0 {
		return ImportRow{}, errs
	}
	return out, nil
}

// SplitSBUs splits the SBUs cell, keeping order and dropping empty names.
func SplitSBUs(value string) []string {
	parts := strings.Split(value, SBUSeparator)
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ValidEmail accepts a bare address with a dotted host name. Display names
// and address literals such as a@[10.0.0.1] are rejected.
func ValidEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || addr.Name != "" {
		return false
	}
	host := value[strings.LastIndexByte(value, '@')+1:]
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			if !isHostRune(r) {
				return false
			}
		}
	}
	return true
}

func isHostRune(r rune) bool {
	return r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127
}

// ValidUUID accepts only the canonical hyphenated form.
func ValidUUID(value string) bool {
	if len(value) != 36 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
