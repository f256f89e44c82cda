package models

import "strings"

// OperatorTask is one item of an operator's shift checklist.
type OperatorTask struct {
	ID            string `json:"id" firestore:"id" db:"task_id"`
	Label         string `json:"label" firestore:"label" db:"label"`
	SequenceOrder int    `json:"-" firestore:"sequenceOrder" db:"sequence_order"`
	Completed     bool   `json:"completed" firestore:"completed" db:"is_completed"`
	CompletedAt   string `json:"completedAt,omitempty" firestore:"completedAt,omitempty" db:"completed_at"`
}

// Checklist task ids
const (
	TaskInspect      = "inspect"
	TaskReport       = "report"
	TaskConfirmEmpty = "confirm-empty"
)

var taskTemplates = []OperatorTask{
	{ID: TaskInspect, Label: "Inspect assigned bins within your zone"},
	{ID: TaskReport, Label: "Report any hardware or location issues"},
	{ID: TaskConfirmEmpty, Label: "Confirm bins emptied after collection"},
}

// DefaultTasks returns a fresh, uncompleted checklist.
func DefaultTasks() []OperatorTask {
	tasks := make([]OperatorTask, len(taskTemplates))
	copy(tasks, taskTemplates)
	for i := range tasks {
		tasks[i].SequenceOrder = i + 1
	}
	return tasks
}

// SetTask marks taskID completed or not at time now. It reports false when
// the checklist has no such task.
func SetTask(tasks []OperatorTask, taskID string, completed bool, now string) bool {
	for i := range tasks {
		if tasks[i].ID != taskID {
			continue
		}
		tasks[i].Completed = completed
		tasks[i].CompletedAt = ""
		if completed {
			tasks[i].CompletedAt = now
		}
		return true
	}
	return false
}

// ToggleCompletedBin adds binID to (or removes it from) a completed list,
// keeping each id once and preserving order.
func ToggleCompletedBin(bins []string, binID string, completed bool) []string {
	out := make([]string, 0, len(bins)+1)
	found := false
	for _, id := range bins {
		if strings.EqualFold(id, binID) {
			found = true
			if !completed {
				continue
			}
		}
		out = append(out, id)
	}
	if completed && !found {
		out = append(out, binID)
	}
	return out
}

// OperatorProgress is the response of GET /operators/:id/progress.
type OperatorProgress struct {
	OperatorID    string         `json:"operatorId"`
	CompletedBins []string       `json:"completedBins"`
	Tasks         []OperatorTask `json:"tasks"`
}

// UpdateTaskRequest is the request body for POST /operators/:id/tasks/:taskId
type UpdateTaskRequest struct {
	Completed bool `json:"completed"`
}
