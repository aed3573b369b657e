package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/datadeck-io/datadeck-api/internal/models"

	"github.com/clerk/clerk-sdk-go/v2/organizationmembership"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// AddOrgAdminsToProject adds every organization admin to a project as an
// admin member. excludeUserID skips a user, typically the project creator
// who already holds the owner role.
func (s *Service) AddOrgAdminsToProject(ctx context.Context, projectID uint, organizationID, excludeUserID string) error {
	listParams := &organizationmembership.ListParams{
		OrganizationID: organizationID,
	}

	memberships, err := organizationmembership.List(ctx, listParams)
	if err != nil {
		return fmt.Errorf("failed to list organization members: %w", err)
	}

	for _, membership := range memberships.OrganizationMemberships {
		if membership.Role != "org:admin" {
			continue
		}

		userID := membership.PublicUserData.UserID
		if userID == excludeUserID {
			continue
		}

		admin := models.ProjectMember{
			UserID:    userID,
			ProjectID: projectID,
			Role:      models.ProjectMemberRoleAdmin,
		}
		if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
			// Best effort sync, duplicates are expected on replayed webhooks.
			if !isDuplicateError(err) {
				fiberlog.Warnf("failed to add org admin %s to project %d: %v", admin.UserID, projectID, err)
			}
		}
	}

	return nil
}

// AddUserToAllOrgProjects adds a user to every project in an organization.
// Called when a user gains the org admin role via webhook.
func (s *Service) AddUserToAllOrgProjects(ctx context.Context, userID, organizationID string, role models.ProjectMemberRole) error {
	var orgProjects []models.Project
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Find(&orgProjects).Error
	if err != nil {
		return fmt.Errorf("failed to list organization projects: %w", err)
	}

	for _, project := range orgProjects {
		member := &models.ProjectMember{
			UserID:    userID,
			ProjectID: project.ID,
			Role:      role,
		}

		if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
			if !isDuplicateError(err) {
				fiberlog.Warnf("failed to add user %s to project %d: %v", userID, project.ID, err)
			}
		}
	}

	return nil
}

// RemoveUserFromAllOrgProjects removes a user from every project in an
// organization, transferring ownership first where the user is the owner.
// Called when a user is removed from the org or demoted from admin.
func (s *Service) RemoveUserFromAllOrgProjects(ctx context.Context, userID, organizationID string) error {
	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = project_members.project_id").
		Where("project_members.user_id = ? AND projects.organization_id = ?", userID, organizationID).
		Preload("Project").
		Find(&members).Error
	if err != nil {
		return fmt.Errorf("failed to find user's project memberships: %w", err)
	}

	for _, member := range members {
		if member.Role == models.ProjectMemberRoleOwner {
			if err := s.transferOwnership(ctx, member.Project, userID); err != nil {
				fiberlog.Warnf("failed to transfer ownership of project %d: %v", member.Project.ID, err)
				continue
			}
		}

		err := s.db.WithContext(ctx).
			Where("project_id = ? AND user_id = ?", member.ProjectID, userID).
			Delete(&models.ProjectMember{}).Error
		if err != nil {
			fiberlog.Warnf("failed to remove user %s from project %d: %v", userID, member.ProjectID, err)
		}
	}

	return nil
}

// transferOwnership promotes another member to owner. Admins are preferred,
// then the longest-standing member.
func (s *Service) transferOwnership(ctx context.Context, project *models.Project, currentOwnerID string) error {
	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id != ?", project.ID, currentOwnerID).
		Order("CASE WHEN role = 'admin' THEN 1 WHEN role = 'member' THEN 2 END, created_at ASC").
		Find(&members).Error
	if err != nil {
		return fmt.Errorf("failed to find project members: %w", err)
	}

	if len(members) == 0 {
		// The project stays in the database without an owner for
		// potential recovery, but nobody can access it.
		fiberlog.Warnf("project %d has no other members after owner removal", project.ID)
		return nil
	}

	newOwner := members[0]
	newOwner.Role = models.ProjectMemberRoleOwner
	if err := s.db.WithContext(ctx).Save(&newOwner).Error; err != nil {
		return fmt.Errorf("failed to promote new owner: %w", err)
	}

	fiberlog.Infof("transferred ownership of project %d from %s to %s", project.ID, currentOwnerID, newOwner.UserID)

	return nil
}

func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
