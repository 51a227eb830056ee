// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package testutil provides fixture builders shared across package tests.
// It currently holds one: a small reference topology.
package testutil

import "github.com/fabricctl/controller/internal/topology"

// SampleTopology returns the 5-switch, 2-host fixture used by the ARP
// learning tests:
//
//	h1 - s1 - s2 - s3 - s4 - h4
//	          |         |
//	         s5 ------- (s5 bridges s2 and s4)
func SampleTopology() *topology.Topology {
	b := topology.NewBuilder()
	b.AddHost("h1", "s1", 1, "aa:bb:cc:dd:ee:01", "10.0.1.1")
	b.AddHost("h4", "s4", 1, "aa:bb:cc:dd:ee:04", "10.0.1.4")

	b.AddLink("s1", 2, "s2", 1)
	b.AddLink("s2", 2, "s3", 1)
	b.AddLink("s3", 2, "s4", 2)
	b.AddLink("s2", 3, "s5", 1)
	b.AddLink("s5", 2, "s4", 3)

	return b.Build()
}
