package datasources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/auth"
	"github.com/datadeck-io/datadeck-api/internal/services/connections"
	"gorm.io/gorm"
)

var (
	ErrDataSourceNotFound = errors.New("data source not found")
	ErrUnauthorized       = errors.New("unauthorized access")
)

// Service manages saved connection targets. Targets are scoped to a
// project and every operation checks project membership first. The
// stored password is only ever read back to build probe descriptors.
type Service struct {
	db           *gorm.DB
	authProvider auth.AuthProvider
	connections  *connections.Service
}

func NewService(db *gorm.DB, authProvider auth.AuthProvider, connectionsService *connections.Service) *Service {
	return &Service{
		db:           db,
		authProvider: authProvider,
		connections:  connectionsService,
	}
}

func (s *Service) Create(ctx context.Context, userID string, projectID uint, req *models.DataSourceCreateRequest) (*models.DataSource, error) {
	hasAccess, err := s.authProvider.ValidateProjectAccess(ctx, userID, projectID, auth.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to validate project access: %w", err)
	}
	if !hasAccess {
		return nil, ErrUnauthorized
	}

	ds := &models.DataSource{
		ProjectID: projectID,
		Name:      req.Name,
		Kind:      req.Kind,
		Host:      req.Host,
		Port:      req.Port,
		Database:  req.Database,
		Username:  req.Username,
		Password:  req.Password,
	}

	if err := s.db.WithContext(ctx).Create(ds).Error; err != nil {
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}

	return ds, nil
}

func (s *Service) Get(ctx context.Context, userID string, projectID, dataSourceID uint) (*models.DataSource, error) {
	hasAccess, err := s.authProvider.ValidateProjectAccess(ctx, userID, projectID, auth.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("failed to validate project access: %w", err)
	}
	if !hasAccess {
		return nil, ErrUnauthorized
	}

	return s.fetch(ctx, projectID, dataSourceID)
}

func (s *Service) List(ctx context.Context, userID string, projectID uint) ([]models.DataSource, error) {
	hasAccess, err := s.authProvider.ValidateProjectAccess(ctx, userID, projectID, auth.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("failed to validate project access: %w", err)
	}
	if !hasAccess {
		return nil, ErrUnauthorized
	}

	var list []models.DataSource
	err = s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at ASC").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}

	return list, nil
}

func (s *Service) Update(ctx context.Context, userID string, projectID, dataSourceID uint, req *models.DataSourceUpdateRequest) (*models.DataSource, error) {
	hasAccess, err := s.authProvider.ValidateProjectAccess(ctx, userID, projectID, auth.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to validate project access: %w", err)
	}
	if !hasAccess {
		return nil, ErrUnauthorized
	}

	ds, err := s.fetch(ctx, projectID, dataSourceID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != "" {
		updates["name"] = req.Name
	}

	targetChanged := false
	if req.Host != "" {
		updates["host"] = req.Host
		targetChanged = true
	}
	if req.Port != 0 {
		updates["port"] = req.Port
		targetChanged = true
	}
	if req.Database != "" {
		updates["database"] = req.Database
		targetChanged = true
	}
	if req.Username != "" {
		updates["username"] = req.Username
		targetChanged = true
	}
	if req.Password != nil {
		updates["password"] = *req.Password
		targetChanged = true
	}

	// Changing the target invalidates the last probe outcome.
	if targetChanged {
		updates["last_tested_at"] = nil
		updates["last_test_ok"] = false
		updates["last_latency_ms"] = nil
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(ds).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update data source: %w", err)
		}
	}

	return s.fetch(ctx, projectID, dataSourceID)
}

func (s *Service) Delete(ctx context.Context, userID string, projectID, dataSourceID uint) error {
	hasAccess, err := s.authProvider.ValidateProjectAccess(ctx, userID, projectID, auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to validate project access: %w", err)
	}
	if !hasAccess {
		return ErrUnauthorized
	}

	result := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.DataSource{}, dataSourceID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete data source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDataSourceNotFound
	}

	return nil
}

// Test probes a saved target and records the outcome on the row. The
// probe result is returned verbatim; a failed probe is not an error.
func (s *Service) Test(ctx context.Context, userID string, projectID, dataSourceID uint) (*models.ProbeResult, error) {
	hasAccess, err := s.authProvider.ValidateProjectAccess(ctx, userID, projectID, auth.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("failed to validate project access: %w", err)
	}
	if !hasAccess {
		return nil, ErrUnauthorized
	}

	ds, err := s.fetch(ctx, projectID, dataSourceID)
	if err != nil {
		return nil, err
	}

	result := s.connections.TestConnection(ctx, &models.ConnectionTestRequest{
		Type:     ds.Kind,
		Host:     ds.Host,
		Port:     ds.Port,
		Database: ds.Database,
		Username: ds.Username,
		Password: ds.Password,
	})

	now := time.Now().UTC()
	updates := map[string]any{
		"last_tested_at":  &now,
		"last_test_ok":    result.Success,
		"last_latency_ms": result.LatencyMs,
	}
	if err := s.db.WithContext(ctx).Model(ds).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to record test outcome: %w", err)
	}

	return result, nil
}

func (s *Service) fetch(ctx context.Context, projectID, dataSourceID uint) (*models.DataSource, error) {
	var ds models.DataSource
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&ds, dataSourceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDataSourceNotFound
		}
		return nil, fmt.Errorf("failed to fetch data source: %w", err)
	}
	return &ds, nil
}
