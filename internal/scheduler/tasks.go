package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSequenceStepDue = "sequences.step.due"

const TaskLeadRescoreBatch = "leads.rescore.batch"

const TaskCRMSyncRun = "crm.sync.run"

const TaskExportSnapshot = "exports.snapshot.run"

type ExportSnapshotPayload struct {
	RequestedBy *string `json:"requestedBy,omitempty"`
}

func NewSequenceStepDueTask() *asynq.Task {
	return asynq.NewTask(TaskSequenceStepDue, nil)
}

func NewLeadRescoreBatchTask() *asynq.Task {
	return asynq.NewTask(TaskLeadRescoreBatch, nil)
}

func NewCRMSyncRunTask() *asynq.Task {
	return asynq.NewTask(TaskCRMSyncRun, nil)
}

func NewExportSnapshotTask(payload ExportSnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportSnapshot, data), nil
}

func ParseExportSnapshotPayload(task *asynq.Task) (ExportSnapshotPayload, error) {
	var payload ExportSnapshotPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExportSnapshotPayload{}, err
	}
	return payload, nil
}
