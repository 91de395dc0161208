package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carbonsight/carbon-cli/internal/model"
	"github.com/carbonsight/carbon-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	runs := []store.Run{
		{
			Status: model.RunStatusComplete,
			Summary: model.RunSummary{
				RunID:            "a1b2c3d4-0000-0000-0000-000000000000",
				StartedAt:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
				FinishedAt:       time.Date(2025, 3, 1, 10, 0, 4, 0, time.UTC),
				InputRecords:     10,
				Converted:        8,
				Entities:         3,
				CriticalEntities: 1,
			},
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "a1b2c3d4")
	assert.NotContains(t, out, "a1b2c3d4-0000")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "2025-03-01 10:00")
	assert.Contains(t, out, "4s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abc"))
	assert.Equal(t, "short", truncateID("short"))
}
