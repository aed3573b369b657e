package projects

import (
	"context"
	"testing"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database keeps every pooled connection on the
	// same store while isolating tests from each other.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.DataSource{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func seedOrg(t *testing.T, db *gorm.DB, orgID, ownerID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Organization{
		ID:      orgID,
		Name:    "Acme",
		OwnerID: ownerID,
	}).Error)
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testDB(t)
	return NewService(db, auth.NewDatabaseAuthProvider(db)), db
}

func TestCreateProject_OwnerMembership(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")

	project, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Analytics",
		Color:          "#2563eb",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProjectStatusActive, project.Status)
	assert.Equal(t, "#2563eb", project.Color)
	require.Len(t, project.Members, 1)
	assert.Equal(t, "user_1", project.Members[0].UserID)
	assert.Equal(t, models.ProjectMemberRoleOwner, project.Members[0].Role)
}

func TestCreateProject_RequiresOrganizationAccess(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")

	_, err := svc.CreateProject(ctx, "intruder", &models.ProjectCreateRequest{
		Name:           "Sneaky",
		OrganizationID: "org_1",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateProject_MemberCannotUpdate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")
	project, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Analytics",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.ProjectMember{
		UserID:    "user_2",
		ProjectID: project.ID,
		Role:      models.ProjectMemberRoleMember,
	}).Error)

	_, err = svc.UpdateProject(ctx, "user_2", project.ID, &models.ProjectUpdateRequest{
		Name: "Renamed",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateProject_PartialUpdate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")
	project, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Analytics",
		Description:    "keep me",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)

	newColor := "#16a34a"
	_, err = svc.UpdateProject(ctx, "user_1", project.ID, &models.ProjectUpdateRequest{
		Color:  &newColor,
		Status: models.ProjectStatusArchived,
	})
	require.NoError(t, err)

	var got models.Project
	require.NoError(t, db.First(&got, project.ID).Error)
	assert.Equal(t, "Analytics", got.Name)
	assert.Equal(t, "keep me", got.Description)
	assert.Equal(t, newColor, got.Color)
	assert.Equal(t, models.ProjectStatusArchived, got.Status)
}

func TestDeleteProject_CascadesMembersAndDataSources(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")
	project, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Analytics",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.DataSource{
		ProjectID: project.ID,
		Name:      "primary",
		Kind:      models.EnginePostgreSQL,
		Host:      "db.internal",
		Port:      5432,
		Database:  "app",
		Username:  "svc",
		Password:  "secret",
	}).Error)

	require.NoError(t, svc.DeleteProject(ctx, "user_1", project.ID))

	var memberCount, dsCount int64
	require.NoError(t, db.Model(&models.ProjectMember{}).Where("project_id = ?", project.ID).Count(&memberCount).Error)
	require.NoError(t, db.Model(&models.DataSource{}).Where("project_id = ?", project.ID).Count(&dsCount).Error)
	assert.Zero(t, memberCount)
	assert.Zero(t, dsCount)
}

func TestDeleteProject_RequiresOwner(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")
	project, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Analytics",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.ProjectMember{
		UserID:    "user_2",
		ProjectID: project.ID,
		Role:      models.ProjectMemberRoleAdmin,
	}).Error)

	err = svc.DeleteProject(ctx, "user_2", project.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRemoveMember_OwnerProtected(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")
	project, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Analytics",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)

	err = svc.RemoveMember(ctx, "user_1", project.ID, "user_1")
	assert.ErrorIs(t, err, ErrCannotRemoveOwner)
}

func TestUpdateMemberRole_RejectsOwnerRole(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")
	project, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Analytics",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)

	_, err = svc.UpdateMemberRole(ctx, "user_1", project.ID, "user_2", "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestListProjects_ScopedToOrganization(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrg(t, db, "org_1", "user_1")
	seedOrg(t, db, "org_2", "user_1")

	_, err := svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "First",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, "user_1", &models.ProjectCreateRequest{
		Name:           "Second",
		OrganizationID: "org_2",
	})
	require.NoError(t, err)

	list, err := svc.ListProjects(ctx, "user_1", "org_1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "First", list[0].Name)
}
