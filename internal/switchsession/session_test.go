// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package switchsession

import (
	"encoding/gob"
	"net"
	"testing"
	"time"

	"github.com/fabricctl/controller/internal/errors"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession wires a Session's stream half to an in-memory pipe, with
// a peer end the test can write frames into / read frames from, so the
// dispatcher and outbound encoding can be exercised without a real
// listener.
func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	return newTestSessionWithQueueDepth(t, DefaultInboundQueueDepth)
}

// newTestSessionWithQueueDepth is newTestSession with a caller-chosen
// inbound queue depth, so tests can exercise the backpressure path at an
// explicit depth rather than relying on DefaultInboundQueueDepth.
func newTestSessionWithQueueDepth(t *testing.T, queueDepth int) (*Session, net.Conn) {
	t.Helper()
	local, peer := net.Pipe()

	s := &Session{
		cfg:        Config{SwitchName: "s1", InboundQueueDepth: queueDepth},
		streamConn: local,
		enc:        gob.NewEncoder(local),
		dec:        gob.NewDecoder(local),
		inbound:    make(chan InboundMessage, queueDepth),
		closeCh:    make(chan struct{}),
	}
	go s.dispatchLoop()

	t.Cleanup(func() {
		s.Close()
		peer.Close()
	})

	return s, peer
}

func TestDispatchLoop_DeliversPacketIn(t *testing.T) {
	s, peer := newTestSession(t)
	peerEnc := gob.NewEncoder(peer)

	require.NoError(t, peerEnc.Encode(streamFrame{
		Kind:     framePacketIn,
		PacketIn: &PacketIn{Payload: []byte{1, 2, 3}, IngressPort: 1},
	}))

	msg, err := s.NextInbound(time.Second)
	require.NoError(t, err)
	assert.Equal(t, InboundPacketIn, msg.Kind)
	assert.Equal(t, []byte{1, 2, 3}, msg.PacketIn.Payload)
	assert.False(t, msg.ReceivedAt.IsZero())
}

func TestDispatchLoop_DeliversDigestList(t *testing.T) {
	s, peer := newTestSession(t)
	peerEnc := gob.NewEncoder(peer)

	require.NoError(t, peerEnc.Encode(streamFrame{
		Kind:       frameDigestList,
		DigestList: &DigestList{DigestID: 7, ListID: 1, Data: [][]byte{{0xaa}}},
	}))

	msg, err := s.NextInbound(time.Second)
	require.NoError(t, err)
	assert.Equal(t, InboundDigestList, msg.Kind)
	assert.EqualValues(t, 7, msg.DigestList.DigestID)
}

func TestNextInbound_TimesOut(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.NextInbound(10 * time.Millisecond)
	assert.Equal(t, errors.KindTimeout, errors.GetKind(err))
}

func TestDispatchLoop_BackpressureBlocksPastFullQueue(t *testing.T) {
	const queueDepth = 5
	s, peer := newTestSessionWithQueueDepth(t, queueDepth)
	peerEnc := gob.NewEncoder(peer)

	encode := func(id uint32) <-chan error {
		done := make(chan error, 1)
		go func() {
			done <- peerEnc.Encode(streamFrame{
				Kind:       frameDigestList,
				DigestList: &DigestList{DigestID: id, ListID: int64(id)},
			})
		}()
		return done
	}

	// Fill the inbound queue to its configured capacity: each of these
	// completes promptly since the dispatcher has room to enqueue every
	// one of them.
	for i := uint32(1); i <= queueDepth; i++ {
		select {
		case err := <-encode(i):
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatalf("encode of message %d did not complete while queue had room", i)
		}
	}

	// The 6th message is still decoded off the wire, but the dispatcher
	// then blocks trying to push it onto the now-full inbound channel.
	sixth := encode(queueDepth + 1)
	select {
	case err := <-sixth:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("encode of 6th message did not complete")
	}

	// With the dispatcher stuck delivering the 6th message, it isn't
	// looping back to read the wire, so a 7th message's encode blocks too.
	seventh := encode(queueDepth + 2)
	select {
	case <-seventh:
		t.Fatal("7th message encode should have blocked on a full inbound queue")
	case <-time.After(100 * time.Millisecond):
	}

	// Draining one message frees a channel slot, letting the dispatcher's
	// pending send (message 6) through and the loop resume, which in turn
	// unblocks the 7th message's encode.
	msg, err := s.NextInbound(time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, msg.DigestList.DigestID)

	select {
	case err := <-seventh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("7th message encode did not unblock after drain")
	}
}

func TestSendPacketOut_WritesFrame(t *testing.T) {
	s, peer := newTestSession(t)
	peerDec := gob.NewDecoder(peer)

	done := make(chan error, 1)
	var got streamFrame
	go func() { done <- peerDec.Decode(&got) }()

	require.NoError(t, s.SendPacketOut(schema.PacketOut{Payload: []byte{0xff}}))
	require.NoError(t, <-done)
	assert.Equal(t, framePacketOut, got.Kind)
}
