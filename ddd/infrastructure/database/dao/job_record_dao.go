package dao

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slowdown-service/ddd/infrastructure/database/po"
	"slowdown-service/internal/resource"
)

type JobRecordDAO struct {
	db *gorm.DB
}

// NewJobRecordDAO returns nil when the database resource is disabled.
func NewJobRecordDAO() *JobRecordDAO {
	db := resource.DefaultMysqlResource().MainDB()
	if db == nil {
		return nil
	}
	return &JobRecordDAO{db: db}
}

// Migrate creates or updates the slowdown_jobs table.
func (d *JobRecordDAO) Migrate() error {
	return d.db.AutoMigrate(&po.JobRecord{})
}

// Upsert inserts the record or updates the existing row for the same job id.
func (d *JobRecordDAO) Upsert(ctx context.Context, record *po.JobRecord) error {
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"output_path", "status", "progress", "message",
				"input_duration", "output_duration", "pid",
				"started_at", "ended_at", "updated_at",
			}),
		}).
		Create(record).Error
}

// UpdateProgress refreshes only the progress column.
func (d *JobRecordDAO) UpdateProgress(ctx context.Context, jobID int64, progress float64) error {
	return d.db.WithContext(ctx).Model(&po.JobRecord{}).
		Where("job_id = ?", jobID).
		Update("progress", progress).Error
}

// FindByJobID fetches one record by scheduler job id.
func (d *JobRecordDAO) FindByJobID(ctx context.Context, jobID int64) (*po.JobRecord, error) {
	var record po.JobRecord
	if err := d.db.WithContext(ctx).Where("job_id = ?", jobID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// QueryByStatus lists records in a given status, oldest update first.
func (d *JobRecordDAO) QueryByStatus(ctx context.Context, status string, limit int) ([]*po.JobRecord, error) {
	var records []*po.JobRecord
	q := d.db.WithContext(ctx).Where("status = ?", status).Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
