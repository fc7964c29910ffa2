package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTaskStatus(t *testing.T) {
	for _, valid := range []string{"pending", "in-progress", "completed"} {
		status, ok := ParseTaskStatus(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, TaskStatus(valid), status)
	}

	for _, invalid := range []string{"", "done", "PENDING", "in_progress"} {
		_, ok := ParseTaskStatus(invalid)
		assert.False(t, ok, invalid)
	}
}

func TestParseTaskPriority(t *testing.T) {
	for _, valid := range []string{"low", "medium", "high"} {
		priority, ok := ParseTaskPriority(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, TaskPriority(valid), priority)
	}

	for _, invalid := range []string{"", "urgent", "HIGH"} {
		_, ok := ParseTaskPriority(invalid)
		assert.False(t, ok, invalid)
	}
}
