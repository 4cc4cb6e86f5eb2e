package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldops/dispatch-api/pkg/models"
)

// TechnicianRecord represents the technicians table. Rows are keyed by
// (tenant_id, id) so two tenants may use the same technician ID.
type TechnicianRecord struct {
	TenantID  string         `gorm:"primaryKey" json:"tenant_id"`
	ID        string         `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Skills    []models.Skill `gorm:"serializer:json" json:"skills"`
	Status    string         `gorm:"not null;default:active" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (TechnicianRecord) TableName() string { return "technicians" }

// JobRecord represents the jobs table, keyed by (tenant_id, id)
type JobRecord struct {
	TenantID             string         `gorm:"primaryKey;index:idx_jobs_tenant_window" json:"tenant_id"`
	ID                   string         `gorm:"primaryKey" json:"id"`
	Location             string         `json:"location"`
	RequiredSkills       []models.Skill `gorm:"serializer:json" json:"required_skills"`
	StartsAt             time.Time      `gorm:"index:idx_jobs_tenant_window;not null" json:"starts_at"`
	EndsAt               time.Time      `gorm:"not null" json:"ends_at"`
	AssignedTechnicianID *string        `gorm:"index" json:"assigned_technician_id"`
	Status               string         `gorm:"not null;default:unassigned" json:"status"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (JobRecord) TableName() string { return "jobs" }

// TenantUsage represents the tenant_usage table
type TenantUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	TenantID       string `gorm:"uniqueIndex:idx_tenant_date;not null" json:"tenant_id"`
	Date           string `gorm:"uniqueIndex:idx_tenant_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"request_count"`
	ConflictChecks int    `gorm:"default:0" json:"conflict_checks"`
	JobsAssigned   int    `gorm:"default:0" json:"jobs_assigned"`
}

func (TenantUsage) TableName() string { return "tenant_usage" }

// Open connects to Postgres when databaseURL is set and to SQLite at
// dataPath otherwise, then migrates the schema.
func Open(databaseURL, dataPath string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if databaseURL != "" {
		cfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  databaseURL,
			PreferSimpleProtocol: true,
		}), cfg)
	} else {
		if dataPath == "" {
			dataPath = "dispatch.db"
		}
		db, err = gorm.Open(sqlite.Open(dataPath), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&TechnicianRecord{}, &JobRecord{}, &TenantUsage{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}
