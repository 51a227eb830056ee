// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTunnelID_ConcatenatesPath(t *testing.T) {
	assert.Equal(t, 135, TunnelID([]int{1, 3, 5}))
	assert.Equal(t, 531, TunnelID([]int{5, 3, 1}))
}

func TestResolveIngress_FindsMatchingRoute(t *testing.T) {
	p := &Plan{Routes: map[string][]int{"1,4": {1, 2, 3, 4}}}
	ingress, path, ok := p.ResolveIngress(1234)
	assert.True(t, ok)
	assert.Equal(t, 1, ingress)
	assert.Equal(t, []int{1, 2, 3, 4}, path)
}

func TestResolveIngress_NoMatch(t *testing.T) {
	p := &Plan{Routes: map[string][]int{"1,4": {1, 2, 3, 4}}}
	_, _, ok := p.ResolveIngress(9999)
	assert.False(t, ok)
}
