package progress

import (
	"context"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/port"
	"slowdown-service/ddd/domain/vo"
	"slowdown-service/ddd/infrastructure/database/dao"
	"slowdown-service/ddd/infrastructure/database/po"
)

// HistorySink mirrors job lifecycle into the slowdown_jobs table. Progress
// events touch only the progress column; status events upsert the full row.
type HistorySink struct {
	dao *dao.JobRecordDAO
}

func NewHistorySink(d *dao.JobRecordDAO) port.EventSink {
	return &HistorySink{dao: d}
}

func (s *HistorySink) Record(ctx context.Context, ev vo.JobEvent, snap *entity.Snapshot) error {
	if s.dao == nil || snap == nil {
		return nil
	}
	switch ev.Kind {
	case vo.EventProgress:
		return s.dao.UpdateProgress(ctx, snap.ID, ev.Progress)
	case vo.EventStatus:
		return s.dao.Upsert(ctx, recordFromSnapshot(snap))
	default:
		return nil
	}
}

func recordFromSnapshot(snap *entity.Snapshot) *po.JobRecord {
	return &po.JobRecord{
		JobID:          snap.ID,
		InputPath:      snap.InputPath,
		OutputPath:     snap.OutputPath,
		Preview:        snap.Preview,
		Status:         snap.Status.String(),
		Progress:       snap.Progress,
		Message:        snap.Message,
		InputDuration:  snap.Media.Duration,
		OutputDuration: snap.OutputDuration,
		PID:            snap.PID,
		StartedAt:      snap.StartedAt,
		EndedAt:        snap.EndedAt,
	}
}
