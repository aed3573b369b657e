package api

import (
	"encoding/json"
	"io"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/services/projects"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	svix "github.com/svix/svix-webhooks/go"
	"gorm.io/gorm"
)

// ClerkWebhookHandler mirrors Clerk user and organization state into the
// local store so project membership stays consistent.
type ClerkWebhookHandler struct {
	webhookSecret   string
	db              *gorm.DB
	projectsService *projects.Service
}

func NewClerkWebhookHandler(webhookSecret string, db *gorm.DB, projectsService *projects.Service) *ClerkWebhookHandler {
	return &ClerkWebhookHandler{
		webhookSecret:   webhookSecret,
		db:              db,
		projectsService: projectsService,
	}
}

type ClerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type clerkUserData struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

type clerkOrganizationData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

type clerkMembershipData struct {
	Organization clerkOrganizationData `json:"organization"`
	Role         string                `json:"role"`
	PublicUser   struct {
		UserID string `json:"user_id"`
	} `json:"public_user_data"`
}

func (h *ClerkWebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	payload, err := io.ReadAll(c.Context().RequestBodyStream())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read request body",
		})
	}

	headers := make(map[string][]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = []string{string(value)}
	})

	wh, err := svix.NewWebhook(h.webhookSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to initialize webhook verifier",
		})
	}

	if err := wh.Verify(payload, headers); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	var event ClerkWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON payload",
		})
	}

	var handleErr error
	switch event.Type {
	case "user.created", "user.updated":
		handleErr = h.handleUserUpsert(c, event.Data)
	case "organization.created":
		handleErr = h.handleOrganizationCreated(c, event.Data)
	case "organization.deleted":
		handleErr = h.handleOrganizationDeleted(c, event.Data)
	case "organizationMembership.created", "organizationMembership.updated":
		handleErr = h.handleMembershipUpsert(c, event.Data)
	case "organizationMembership.deleted":
		handleErr = h.handleMembershipDeleted(c, event.Data)
	default:
		fiberlog.Debugf("ignoring clerk webhook event: %s", event.Type)
	}

	if handleErr != nil {
		fiberlog.Errorf("failed to process clerk webhook %s: %v", event.Type, handleErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process webhook event",
		})
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}

func (h *ClerkWebhookHandler) handleUserUpsert(c *fiber.Ctx, data json.RawMessage) error {
	var userData clerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return err
	}

	user := models.User{
		ID:   userData.ID,
		Name: userData.FirstName + " " + userData.LastName,
	}
	if len(userData.EmailAddresses) > 0 {
		user.Email = userData.EmailAddresses[0].EmailAddress
	}

	return h.db.WithContext(c.Context()).Save(&user).Error
}

func (h *ClerkWebhookHandler) handleOrganizationCreated(c *fiber.Ctx, data json.RawMessage) error {
	var orgData clerkOrganizationData
	if err := json.Unmarshal(data, &orgData); err != nil {
		return err
	}

	org := models.Organization{
		ID:      orgData.ID,
		Name:    orgData.Name,
		OwnerID: orgData.CreatedBy,
	}
	return h.db.WithContext(c.Context()).Save(&org).Error
}

func (h *ClerkWebhookHandler) handleOrganizationDeleted(c *fiber.Ctx, data json.RawMessage) error {
	var orgData clerkOrganizationData
	if err := json.Unmarshal(data, &orgData); err != nil {
		return err
	}

	return h.db.WithContext(c.Context()).
		Where("organization_id = ?", orgData.ID).
		Delete(&models.OrganizationMember{}).Error
}

func (h *ClerkWebhookHandler) handleMembershipUpsert(c *fiber.Ctx, data json.RawMessage) error {
	var membership clerkMembershipData
	if err := json.Unmarshal(data, &membership); err != nil {
		return err
	}

	if membership.Role == "org:admin" {
		return h.projectsService.AddUserToAllOrgProjects(
			c.Context(),
			membership.PublicUser.UserID,
			membership.Organization.ID,
			models.ProjectMemberRoleAdmin,
		)
	}

	// Demotion from admin revokes the synced project access.
	return h.projectsService.RemoveUserFromAllOrgProjects(
		c.Context(),
		membership.PublicUser.UserID,
		membership.Organization.ID,
	)
}

func (h *ClerkWebhookHandler) handleMembershipDeleted(c *fiber.Ctx, data json.RawMessage) error {
	var membership clerkMembershipData
	if err := json.Unmarshal(data, &membership); err != nil {
		return err
	}

	return h.projectsService.RemoveUserFromAllOrgProjects(
		c.Context(),
		membership.PublicUser.UserID,
		membership.Organization.ID,
	)
}
