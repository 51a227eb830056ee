// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import "testing"

func TestRate_Normal(t *testing.T) {
	if rate := Rate(1000, 500, 1.0); rate != 500.0 {
		t.Errorf("expected rate 500.0, got %f", rate)
	}
}

func TestRate_Reset(t *testing.T) {
	if rate := Rate(100, 1000, 1.0); rate != 100.0 {
		t.Errorf("on reset, expected rate 100.0 (current value), got %f", rate)
	}
}

func TestRate_ZeroElapsed(t *testing.T) {
	if rate := Rate(1000, 500, 0.0); rate != 0.0 {
		t.Errorf("expected rate 0.0 for zero elapsed, got %f", rate)
	}
}

func TestRate_NegativeElapsed(t *testing.T) {
	if rate := Rate(1000, 500, -1.0); rate != 0.0 {
		t.Errorf("expected rate 0.0 for negative elapsed, got %f", rate)
	}
}
