package profile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/xuri/excelize/v2"
)

type profileLister interface {
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
}

// Exporter writes profiles in the import column layout, so an unmodified
// export can be uploaded again as an update.
type Exporter struct {
	repo profileLister
}

func NewExporter(repo profileLister) *Exporter {
	return &Exporter{repo: repo}
}

func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) error {
	profiles, err := e.repo.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExportProfiles, err)
	}

	// BOM keeps Excel from misreading UTF-8
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return err
	}
	for _, p := range profiles {
		if err := cw.Write(ExportRecord(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer) error {
	profiles, err := e.repo.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExportProfiles, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(domain.Columns)); err != nil {
		return err
	}
	for i, p := range profiles {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(ExportRecord(p))); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// ExportRecord renders a profile in Columns order.
func ExportRecord(p domain.Profile) []string {
	return []string{
		p.ID,
		p.Email,
		p.FirstName,
		p.LastName,
		p.OrgID,
		p.Level,
		strings.Join(p.SBUs, domain.SBUSeparator),
		string(p.Role),
		p.Gender,
		p.DateOfBirth,
		p.Designation,
		p.Location,
		p.EmploymentType,
		p.EmployeeRole,
		p.EmployeeType,
		p.SupervisorEmail,
		string(p.Status),
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
