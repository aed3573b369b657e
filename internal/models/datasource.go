package models

import "time"

// DataSource is a saved, project-scoped connection target. The core
// never persists descriptors itself; callers store validated targets
// here. The password column is write-only: it never appears in JSON and
// never leaves the service layer except inside a probe descriptor.
type DataSource struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID uint       `gorm:"not null;index" json:"project_id"`
	Name      string     `gorm:"not null;type:varchar(255)" json:"name"`
	Kind      EngineKind `gorm:"not null;type:varchar(50)" json:"kind"`
	Host      string     `gorm:"not null;type:varchar(255)" json:"host"`
	Port      int        `gorm:"not null" json:"port"`
	Database  string     `gorm:"not null;type:varchar(255)" json:"database"`
	Username  string     `gorm:"not null;type:varchar(255)" json:"username"`
	Password  string     `gorm:"not null;type:varchar(255)" json:"-"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`

	LastTestedAt  *time.Time `json:"last_tested_at,omitempty"`
	LastTestOK    bool       `json:"last_test_ok"`
	LastLatencyMs *int64     `json:"last_latency_ms,omitempty"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"-"`
}

func (DataSource) TableName() string {
	return "data_sources"
}

type DataSourceCreateRequest struct {
	Name     string     `json:"name" validate:"required,min=1,max=255"`
	Kind     EngineKind `json:"kind" validate:"required,oneof=postgresql mysql mongodb supabase"`
	Host     string     `json:"host" validate:"required"`
	Port     int        `json:"port" validate:"required,min=1,max=65535"`
	Database string     `json:"database" validate:"required"`
	Username string     `json:"username" validate:"required"`
	Password string     `json:"password" validate:"required"`
}

type DataSourceUpdateRequest struct {
	Name     string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Host     string  `json:"host,omitempty"`
	Port     int     `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Database string  `json:"database,omitempty"`
	Username string  `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

type DataSourceResponse struct {
	ID            uint       `json:"id"`
	ProjectID     uint       `json:"project_id"`
	Name          string     `json:"name"`
	Kind          EngineKind `json:"kind"`
	Host          string     `json:"host"`
	Port          int        `json:"port"`
	Database      string     `json:"database"`
	Username      string     `json:"username"`
	LastTestedAt  *time.Time `json:"last_tested_at,omitempty"`
	LastTestOK    bool       `json:"last_test_ok"`
	LastLatencyMs *int64     `json:"last_latency_ms,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (d *DataSource) ToResponse() *DataSourceResponse {
	return &DataSourceResponse{
		ID:            d.ID,
		ProjectID:     d.ProjectID,
		Name:          d.Name,
		Kind:          d.Kind,
		Host:          d.Host,
		Port:          d.Port,
		Database:      d.Database,
		Username:      d.Username,
		LastTestedAt:  d.LastTestedAt,
		LastTestOK:    d.LastTestOK,
		LastLatencyMs: d.LastLatencyMs,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
