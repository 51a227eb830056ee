// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsExponentiallyUpToCap(t *testing.T) {
	s := New(Config{BaseDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, MaxConsecutive: 20})

	d1, failed1 := s.RecordFailure()
	assert.Equal(t, 10*time.Millisecond, d1)
	assert.False(t, failed1)

	d2, _ := s.RecordFailure()
	assert.Equal(t, 20*time.Millisecond, d2)

	d3, _ := s.RecordFailure()
	assert.Equal(t, 40*time.Millisecond, d3)

	var last time.Duration
	for i := 0; i < 10; i++ {
		last, _ = s.RecordFailure()
	}
	assert.Equal(t, 100*time.Millisecond, last)
}

func TestFailedAfterMaxConsecutive(t *testing.T) {
	s := New(Config{BaseDelay: time.Millisecond, MaxDelay: time.Second, MaxConsecutive: 3})

	_, failed := s.RecordFailure()
	assert.False(t, failed)
	_, failed = s.RecordFailure()
	assert.False(t, failed)
	_, failed = s.RecordFailure()
	assert.True(t, failed)
	assert.True(t, s.Failed())
}

func TestRecordSuccessResetsStreak(t *testing.T) {
	s := New(Config{BaseDelay: time.Millisecond, MaxDelay: time.Second, MaxConsecutive: 2})

	s.RecordFailure()
	s.RecordSuccess()
	_, failed := s.RecordFailure()
	assert.False(t, failed)
	assert.False(t, s.Failed())
}
