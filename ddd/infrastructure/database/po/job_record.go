package po

import "time"

// JobRecord 慢放作业历史持久化对象
//
// One row per scheduler job; updated in place as the job moves through its
// lifecycle so the table doubles as a job history after restarts.
type JobRecord struct {
	BaseModel
	JobID          int64      `gorm:"column:job_id;uniqueIndex" json:"job_id"`
	InputPath      string     `gorm:"column:input_path;type:varchar(512)" json:"input_path"`
	OutputPath     string     `gorm:"column:output_path;type:varchar(512)" json:"output_path"`
	Preview        bool       `gorm:"column:preview" json:"preview"`
	Status         string     `gorm:"column:status;type:varchar(20);index" json:"status"`
	Progress       float64    `gorm:"column:progress;default:0" json:"progress"`
	Message        string     `gorm:"column:message;type:varchar(255)" json:"message"`
	InputDuration  float64    `gorm:"column:input_duration" json:"input_duration"`
	OutputDuration float64    `gorm:"column:output_duration" json:"output_duration"`
	PID            int        `gorm:"column:pid" json:"pid"`
	StartedAt      *time.Time `gorm:"column:started_at;type:timestamp" json:"started_at,omitempty"`
	EndedAt        *time.Time `gorm:"column:ended_at;type:timestamp" json:"ended_at,omitempty"`
}

// TableName 指定表名
func (JobRecord) TableName() string {
	return "slowdown_jobs"
}
