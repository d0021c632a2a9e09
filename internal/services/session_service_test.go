package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetingPartsSingleChunk(t *testing.T) {
	assert.Equal(t, []int{30}, meetingParts(30))
	assert.Equal(t, []int{40}, meetingParts(40))
}

func TestMeetingPartsSplitsAtProviderCap(t *testing.T) {
	assert.Equal(t, []int{40, 20}, meetingParts(60))
	assert.Equal(t, []int{40, 40, 10}, meetingParts(90))
	assert.Equal(t, []int{40, 40, 40}, meetingParts(120))
	assert.Equal(t, []int{40, 40, 40, 40, 20}, meetingParts(180))
}

func TestMeetingPartsCoverFullDuration(t *testing.T) {
	for duration := 1; duration <= 240; duration++ {
		total := 0
		for _, part := range meetingParts(duration) {
			assert.Greater(t, part, 0)
			assert.LessOrEqual(t, part, maxMeetingMinutes)
			total += part
		}
		assert.Equal(t, duration, total)
	}
}
