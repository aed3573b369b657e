package datasources

import (
	"context"
	"testing"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/auth"
	"github.com/datadeck-io/datadeck-api/internal/services/connections"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setup(t *testing.T) (*Service, *gorm.DB, uint) {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, db.AutoMigrate(
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.DataSource{},
	))

	project := &models.Project{Name: "Analytics", OrganizationID: "org_1", Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&models.ProjectMember{
		UserID:    "owner_1",
		ProjectID: project.ID,
		Role:      models.ProjectMemberRoleOwner,
	}).Error)
	require.NoError(t, db.Create(&models.ProjectMember{
		UserID:    "viewer_1",
		ProjectID: project.ID,
		Role:      models.ProjectMemberRoleMember,
	}).Error)

	svc := NewService(db, auth.NewDatabaseAuthProvider(db), connections.NewService())
	return svc, db, project.ID
}

func createRequest() *models.DataSourceCreateRequest {
	return &models.DataSourceCreateRequest{
		Name:     "primary",
		Kind:     models.EnginePostgreSQL,
		Host:     "db.internal",
		Port:     5432,
		Database: "app",
		Username: "svc",
		Password: "secret",
	}
}

func TestCreate_RequiresAdminRole(t *testing.T) {
	svc, _, projectID := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "viewer_1", projectID, createRequest())
	assert.ErrorIs(t, err, ErrUnauthorized)

	ds, err := svc.Create(ctx, "owner_1", projectID, createRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EnginePostgreSQL, ds.Kind)
}

func TestResponse_NeverContainsPassword(t *testing.T) {
	svc, _, projectID := setup(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, "owner_1", projectID, createRequest())
	require.NoError(t, err)

	resp := ds.ToResponse()
	assert.Equal(t, "svc", resp.Username)
	// The response struct has no password field at all; the stored row
	// keeps it for probe descriptors only.
	assert.Equal(t, "secret", ds.Password)
}

func TestList_MemberCanRead(t *testing.T) {
	svc, _, projectID := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner_1", projectID, createRequest())
	require.NoError(t, err)

	list, err := svc.List(ctx, "viewer_1", projectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdate_AddressChangeInvalidatesLastTest(t *testing.T) {
	svc, db, projectID := setup(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, "owner_1", projectID, createRequest())
	require.NoError(t, err)

	// Simulate a recorded probe outcome.
	latency := int64(12)
	require.NoError(t, db.Model(ds).Updates(map[string]any{
		"last_test_ok":    true,
		"last_latency_ms": &latency,
	}).Error)

	updated, err := svc.Update(ctx, "owner_1", projectID, ds.ID, &models.DataSourceUpdateRequest{
		Host: "db2.internal",
	})
	require.NoError(t, err)

	assert.Equal(t, "db2.internal", updated.Host)
	assert.False(t, updated.LastTestOK)
	assert.Nil(t, updated.LastTestedAt)
	assert.Nil(t, updated.LastLatencyMs)
}

func TestUpdate_PasswordPointerSemantics(t *testing.T) {
	svc, db, projectID := setup(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, "owner_1", projectID, createRequest())
	require.NoError(t, err)

	// Omitted password leaves the stored secret untouched.
	_, err = svc.Update(ctx, "owner_1", projectID, ds.ID, &models.DataSourceUpdateRequest{
		Name: "renamed",
	})
	require.NoError(t, err)

	var got models.DataSource
	require.NoError(t, db.First(&got, ds.ID).Error)
	assert.Equal(t, "secret", got.Password)

	newPassword := "rotated"
	_, err = svc.Update(ctx, "owner_1", projectID, ds.ID, &models.DataSourceUpdateRequest{
		Password: &newPassword,
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&got, ds.ID).Error)
	assert.Equal(t, "rotated", got.Password)
}

func TestDelete_ScopedToProject(t *testing.T) {
	svc, db, projectID := setup(t)
	ctx := context.Background()

	ds, err := svc.Create(ctx, "owner_1", projectID, createRequest())
	require.NoError(t, err)

	otherProject := &models.Project{Name: "Other", OrganizationID: "org_1", Status: models.ProjectStatusActive}
	require.NoError(t, db.Create(otherProject).Error)
	require.NoError(t, db.Create(&models.ProjectMember{
		UserID:    "owner_1",
		ProjectID: otherProject.ID,
		Role:      models.ProjectMemberRoleOwner,
	}).Error)

	// Deleting through the wrong project must not find the row.
	err = svc.Delete(ctx, "owner_1", otherProject.ID, ds.ID)
	assert.ErrorIs(t, err, ErrDataSourceNotFound)

	require.NoError(t, svc.Delete(ctx, "owner_1", projectID, ds.ID))

	_, err = svc.Get(ctx, "owner_1", projectID, ds.ID)
	assert.ErrorIs(t, err, ErrDataSourceNotFound)
}
