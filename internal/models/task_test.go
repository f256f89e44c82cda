package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleCompletedBin(t *testing.T) {
	bins := ToggleCompletedBin(nil, "bin2", true)
	bins = ToggleCompletedBin(bins, "bin1", true)
	bins = ToggleCompletedBin(bins, "BIN2", true)
	assert.Equal(t, []string{"bin2", "bin1"}, bins)

	assert.Equal(t, []string{"bin1"}, ToggleCompletedBin(bins, "Bin2", false))
	assert.Empty(t, ToggleCompletedBin(nil, "bin1", false))
}

func TestSetTask(t *testing.T) {
	tasks := DefaultTasks()
	assert.Equal(t, []int{1, 2, 3}, []int{tasks[0].SequenceOrder, tasks[1].SequenceOrder, tasks[2].SequenceOrder})

	assert.True(t, SetTask(tasks, TaskConfirmEmpty, true, "2025-03-01T12:00:00Z"))
	assert.True(t, tasks[2].Completed)
	assert.Equal(t, "2025-03-01T12:00:00Z", tasks[2].CompletedAt)

	assert.True(t, SetTask(tasks, TaskConfirmEmpty, false, "2025-03-01T13:00:00Z"))
	assert.False(t, tasks[2].Completed)
	assert.Empty(t, tasks[2].CompletedAt)

	assert.False(t, SetTask(tasks, "dance", true, ""))
	assert.False(t, DefaultTasks()[2].Completed)
}
