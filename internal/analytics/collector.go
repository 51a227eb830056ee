// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package analytics

import (
	"sync"
	"time"
)

// Collector aggregates per-digest flow samples into time-bucketed
// summaries, keyed by switch and tunnel id rather than a single device
// MAC: a fabric flow is identified by which tunnel crossed which switch,
// not by an endpoint address.
type Collector struct {
	mu      sync.Mutex
	buckets map[key]*Summary
	store   *Store
	window  time.Duration
}

// Store returns the underlying analytics store.
func (c *Collector) Store() *Store {
	return c.store
}

type key struct {
	bucket   int64
	switchID string
	tunnelID int
	srcIP    string
	dstIP    string
	dstPort  int
	proto    string
}

// NewCollector creates a new analytics collector.
func NewCollector(store *Store, bucketWindow time.Duration) *Collector {
	if bucketWindow == 0 {
		bucketWindow = 5 * time.Minute
	}
	return &Collector{
		buckets: make(map[key]*Summary),
		store:   store,
		window:  bucketWindow,
	}
}

// IngestPacket records one digest sample into the current time bucket.
func (c *Collector) IngestPacket(pkt Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := pkt.BucketTime.Unix()
	bucketStart := ts - (ts % int64(c.window.Seconds()))

	k := key{
		bucket:   bucketStart,
		switchID: pkt.Switch,
		tunnelID: pkt.TunnelID,
		srcIP:    pkt.SrcIP,
		dstIP:    pkt.DstIP,
		dstPort:  pkt.DstPort,
		proto:    pkt.Protocol,
	}

	s, exists := c.buckets[k]
	if !exists {
		s = &Summary{
			BucketTime: time.Unix(bucketStart, 0),
			Switch:     pkt.Switch,
			TunnelID:   pkt.TunnelID,
			SrcIP:      pkt.SrcIP,
			DstIP:      pkt.DstIP,
			SrcPort:    pkt.SrcPort,
			DstPort:    pkt.DstPort,
			Protocol:   pkt.Protocol,
		}
		c.buckets[k] = s
	}

	s.Bytes += pkt.Bytes
	s.Packets += pkt.Packets
	if pkt.Malicious {
		s.Malicious = true
	}
}

// Flush persists all currently aggregated buckets to the store and clears the memory.
func (c *Collector) Flush() error {
	c.mu.Lock()
	toFlush := make([]Summary, 0, len(c.buckets))
	for _, s := range c.buckets {
		toFlush = append(toFlush, *s)
	}
	c.buckets = make(map[key]*Summary)
	c.mu.Unlock()

	if len(toFlush) == 0 {
		return nil
	}

	return c.store.RecordSummaries(toFlush)
}

// StartBackgroundFlush starts a routine that flushes data to the store at fixed intervals.
func (c *Collector) StartBackgroundFlush(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			_ = c.Flush()
		}
	}()
}
