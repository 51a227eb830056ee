// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Build_AdjacencyIsSymmetric(t *testing.T) {
	topo := sampleTopology()

	port, ok := topo.PortTo("s1", "s2")
	assert.True(t, ok)
	assert.Equal(t, 2, port)

	port, ok = topo.PortTo("s2", "s1")
	assert.True(t, ok)
	assert.Equal(t, 1, port)
}

func TestBuilder_Build_HostLookup(t *testing.T) {
	topo := sampleTopology()

	assert.Equal(t, 1, topo.HostPort["s1"])
	assert.Equal(t, "h1", topo.HostBySwitch["s1"])
	assert.Equal(t, "10.0.1.4", topo.Hosts["h4"].IP)
}

func TestBuilder_Build_SwitchesSortedAndDeduplicated(t *testing.T) {
	b := NewBuilder()
	b.AddLink("s2", 1, "s1", 1)
	b.AddLink("s1", 2, "s3", 1)
	topo := b.Build()

	assert.Equal(t, []string{"s1", "s2", "s3"}, topo.Switches)
}

func TestBuilder_Build_FlagsMismatchedHostCount(t *testing.T) {
	b := NewBuilder()
	b.AddHost("h1", "s1", 1, "aa:bb:cc:dd:ee:01", "10.0.1.1")
	b.AddHost("h2", "s1", 2, "aa:bb:cc:dd:ee:02", "10.0.1.2")
	topo := b.Build()

	assert.NotEmpty(t, topo.Warnings)
}
