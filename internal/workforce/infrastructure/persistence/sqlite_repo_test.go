package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkforceTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, migrations.RunSQLiteMigrations(context.Background(), db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteEmployeeRepository_SaveAndFind(t *testing.T) {
	db := setupWorkforceTestDB(t)
	repo := NewSQLiteEmployeeRepository(db)
	ctx := context.Background()

	emp, err := domain.NewEmployee(uuid.New(), "ada@example.com", "Ada", domain.EmploymentFullTime)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, emp))

	found, err := repo.FindByID(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, found.ID)
	assert.Equal(t, emp.CompanyID, found.CompanyID)
	assert.Equal(t, "ada@example.com", found.Email)
	assert.Equal(t, domain.EmploymentFullTime, found.EmploymentType)

	emp.EmploymentType = domain.EmploymentFreelancer
	require.NoError(t, repo.Save(ctx, emp))
	found, err = repo.FindByID(ctx, emp.ID)
	require.NoError(t, err)
	assert.True(t, found.EmploymentType.IsFreelancer())
}

func TestSQLiteEmployeeRepository_NotFound(t *testing.T) {
	repo := NewSQLiteEmployeeRepository(setupWorkforceTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
}

func TestSQLiteAgreementRepository_FindActiveSigned(t *testing.T) {
	db := setupWorkforceTestDB(t)
	repo := NewSQLiteAgreementRepository(db)
	ctx := context.Background()
	employeeID, companyID := uuid.New(), uuid.New()

	_, err := repo.FindActiveSigned(ctx, employeeID)
	assert.ErrorIs(t, err, domain.ErrAgreementNotFound)

	// A draft and a half-signed agreement never qualify.
	draft := domain.NewWorkAgreement(employeeID, companyID)
	draft.ScreenshotConsent = true
	require.NoError(t, repo.Save(ctx, draft))

	halfSigned := domain.NewWorkAgreement(employeeID, companyID)
	halfSigned.Status = domain.AgreementActive
	halfSigned.AdminSigned = true
	require.NoError(t, repo.Save(ctx, halfSigned))

	_, err = repo.FindActiveSigned(ctx, employeeID)
	assert.ErrorIs(t, err, domain.ErrAgreementNotFound)

	active := domain.NewWorkAgreement(employeeID, companyID)
	active.Activate()
	active.ScreenshotConsent = true
	active.ScreenRecordingConsent = true
	require.NoError(t, repo.Save(ctx, active))

	found, err := repo.FindActiveSigned(ctx, employeeID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)
	assert.True(t, found.IsActive())
	assert.True(t, found.ScreenshotConsent)
	assert.True(t, found.ScreenRecordingConsent)
	assert.False(t, found.AutoTimerConsent)
	assert.False(t, found.ActivityTrackingConsent)
}

func TestSQLiteAgreementRepository_Ambiguous(t *testing.T) {
	repo := NewSQLiteAgreementRepository(setupWorkforceTestDB(t))
	ctx := context.Background()
	employeeID, companyID := uuid.New(), uuid.New()

	for i := 0; i < 2; i++ {
		a := domain.NewWorkAgreement(employeeID, companyID)
		a.Activate()
		require.NoError(t, repo.Save(ctx, a))
	}

	_, err := repo.FindActiveSigned(ctx, employeeID)
	assert.ErrorIs(t, err, domain.ErrAgreementAmbiguous)
}

func TestSQLiteAgreementRepository_TerminatedIsIgnored(t *testing.T) {
	repo := NewSQLiteAgreementRepository(setupWorkforceTestDB(t))
	ctx := context.Background()
	employeeID := uuid.New()

	a := domain.NewWorkAgreement(employeeID, uuid.New())
	a.Activate()
	require.NoError(t, repo.Save(ctx, a))
	a.Terminate()
	require.NoError(t, repo.Save(ctx, a))

	_, err := repo.FindActiveSigned(ctx, employeeID)
	assert.ErrorIs(t, err, domain.ErrAgreementNotFound)
}
