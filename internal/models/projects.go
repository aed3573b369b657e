package models

import "time"

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;type:varchar(255)" json:"email"`
	Name      string    `gorm:"not null;type:varchar(255)" json:"name"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusCompleted ProjectStatus = "completed"
)

type Project struct {
	ID             uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string        `gorm:"not null;type:varchar(255)" json:"name"`
	Description    string        `gorm:"type:text" json:"description"`
	Status         ProjectStatus `gorm:"not null;default:'active';type:varchar(50)" json:"status"`
	Color          string        `gorm:"type:varchar(20)" json:"color"`
	OrganizationID string        `gorm:"not null;index;type:varchar(255)" json:"organization_id"`
	CreatedAt      time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Members     []ProjectMember `gorm:"foreignKey:ProjectID" json:"members"`
	DataSources []DataSource    `gorm:"foreignKey:ProjectID" json:"data_sources,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

type ProjectMemberRole string

const (
	ProjectMemberRoleOwner  ProjectMemberRole = "owner"
	ProjectMemberRoleAdmin  ProjectMemberRole = "admin"
	ProjectMemberRoleMember ProjectMemberRole = "member"
)

type ProjectMember struct {
	ID        uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string            `gorm:"not null;index;type:varchar(255)" json:"user_id"`
	ProjectID uint              `gorm:"not null;index" json:"project_id"`
	Role      ProjectMemberRole `gorm:"not null;type:varchar(50)" json:"role"`
	CreatedAt time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"-"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

type ProjectCreateRequest struct {
	Name           string        `json:"name" validate:"required,min=1,max=255"`
	Description    string        `json:"description,omitempty"`
	Color          string        `json:"color,omitempty"`
	OrganizationID string        `json:"organization_id" validate:"required"`
	Status         ProjectStatus `json:"status,omitempty"`
}

type ProjectUpdateRequest struct {
	Name        string        `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string       `json:"description,omitempty"`
	Color       *string       `json:"color,omitempty"`
	Status      ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=active archived completed"`
}

type AddProjectMemberRequest struct {
	UserID string            `json:"user_id" validate:"required"`
	Role   ProjectMemberRole `json:"role" validate:"required,oneof=owner admin member"`
}

type UpdateProjectMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

type ProjectResponse struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Status         ProjectStatus   `json:"status"`
	Color          string          `json:"color"`
	OrganizationID string          `json:"organization_id"`
	Members        []ProjectMember `json:"members"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (p *Project) ToResponse() *ProjectResponse {
	return &ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Status:         p.Status,
		Color:          p.Color,
		OrganizationID: p.OrganizationID,
		Members:        p.Members,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type Organization struct {
	ID        string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Name      string    `gorm:"not null;type:varchar(255)" json:"name"`
	OwnerID   string    `gorm:"not null;index;type:varchar(255)" json:"owner_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

type OrganizationMember struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         string    `gorm:"not null;index;type:varchar(255)" json:"user_id"`
	OrganizationID string    `gorm:"not null;index;type:varchar(255)" json:"organization_id"`
	Role           string    `gorm:"not null;type:varchar(50)" json:"role"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}
