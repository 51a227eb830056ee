// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package orchestrator

import (
	"errors"
	"net"

	"github.com/fabricctl/controller/internal/netutil"
)

var errNotNumeric = errors.New("orchestrator: not a numeric switch id")

func parseMAC6(s string) ([6]byte, bool) {
	hw, err := netutil.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return [6]byte{}, false
	}
	var out [6]byte
	copy(out[:], hw)
	return out, true
}

func parseIP4(s string) ([4]byte, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return [4]byte{}, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return [4]byte{}, false
	}
	var out [4]byte
	copy(out[:], v4)
	return out, true
}
