package profile_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	profiles []domain.Profile
	err      error
}

func (f *fakeLister) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return f.profiles, f.err
}

func exportFixture() []domain.Profile {
	return []domain.Profile{
		{
			ID:              "a3f91a91-7fdd-43bf-bfd2-00bc02f6c53e",
			Email:           "alice@x.io",
			FirstName:       "Alice",
			LastName:        "O'Neil, Jr.",
			OrgID:           "ORG-1",
			Level:           "Senior",
			SBUs:            []string{"Retail", "Ops"},
			Role:            domain.RoleAdmin,
			Gender:          "female",
			DateOfBirth:     "1990-04-01",
			Designation:     "Lead \"Platform\"",
			Location:        "Berlin",
			EmploymentType:  "Full Time",
			EmployeeRole:    "Engineer",
			EmployeeType:    "Permanent",
			SupervisorEmail: "boss@x.io",
			Status:          domain.StatusActive,
		},
		{
			ID:     "5b7f2a0e-8c1d-4e3f-9a2b-6c4d8e0f1a2b",
			Email:  "bob@x.io",
			Role:   domain.RoleUser,
			Status: domain.StatusDisabled,
		},
	}
}

func storeWith(profiles []domain.Profile) *fakeStore {
	store := newFakeStore()
	for _, p := range profiles {
		store.addProfile(p.ID, p.Email)
	}
	return store
}

func TestExportCSVRoundTripsAsExistingUsers(t *testing.T) {
	t.Parallel()

	profiles := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, app.NewExporter(&fakeLister{profiles: profiles}).WriteCSV(context.Background(), &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "\xEF\xBB\xBFID,Email,"))

	reader, err := app.OpenRowReader("profiles.csv", bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	defer reader.Close()

	result, err := app.NewReconciler(storeWith(profiles), nil).ProcessFile(context.Background(), reader, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	assert.Empty(t, result.NewUsers)
	require.Len(t, result.ExistingUsers, 2)

	alice := result.ExistingUsers[0]
	assert.Equal(t, "O'Neil, Jr.", *alice.LastName)
	assert.Equal(t, "Lead \"Platform\"", *alice.Designation)
	assert.Equal(t, []string{"Retail", "Ops"}, alice.SBUs)
	assert.Equal(t, domain.RoleAdmin, *alice.Role)
	assert.Equal(t, "boss@x.io", *alice.SupervisorEmail)

	bob := result.ExistingUsers[1]
	assert.Nil(t, bob.FirstName)
	assert.Empty(t, bob.SBUs)
	assert.Equal(t, domain.StatusDisabled, *bob.Status)
}

func TestExportXLSXRoundTripsAsExistingUsers(t *testing.T) {
	t.Parallel()

	profiles := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, app.NewExporter(&fakeLister{profiles: profiles}).WriteXLSX(context.Background(), &buf))

	reader, err := app.OpenRowReader("profiles.xlsx", bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	defer reader.Close()

	result, err := app.NewReconciler(storeWith(profiles), nil).ProcessFile(context.Background(), reader, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	assert.Empty(t, result.NewUsers)
	require.Len(t, result.ExistingUsers, 2)
	assert.Equal(t, "alice@x.io", result.ExistingUsers[0].Email)
	assert.Equal(t, []string{"Retail", "Ops"}, result.ExistingUsers[0].SBUs)
}

func TestExportRecordFollowsColumns(t *testing.T) {
	t.Parallel()

	record := app.ExportRecord(exportFixture()[0])

	require.Len(t, record, len(domain.Columns))
	assert.Equal(t, "alice@x.io", record[1])
	assert.Equal(t, "Retail;Ops", record[6])
	assert.Equal(t, "active", record[len(record)-1])
}

func TestExportListFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := app.NewExporter(&fakeLister{err: errors.New("db down")}).WriteCSV(context.Background(), &buf)

	assert.ErrorIs(t, err, app.ErrExportProfiles)
	assert.Zero(t, buf.Len())
}
