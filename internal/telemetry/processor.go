// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/fabricctl/controller/internal/analytics"
	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/metrics"
	"github.com/fabricctl/controller/internal/plan"
	"github.com/fabricctl/controller/internal/ruleengine"
)

// rateKey identifies one flow's running throughput state: a switch
// observing a tunnel id.
type rateKey struct {
	sw       string
	tunnelID int
}

type rateState struct {
	lastTimestampNs uint64
	lastByteCount   uint64
}

// Processor decodes digest lists, derives per-flow metrics, publishes
// them, and reacts to malicious-flow reports by installing a drop rule at
// the flow's ingress switch.
type Processor struct {
	reg     *metrics.Registry
	engine  *ruleengine.Engine
	log     *logging.Logger
	store   *analytics.Collector

	mu   sync.Mutex
	rate map[rateKey]*rateState
	plan *plan.Plan
}

// New constructs a Processor. store may be nil when historical
// persistence isn't wired up.
func New(reg *metrics.Registry, engine *ruleengine.Engine, log *logging.Logger, store *analytics.Collector) *Processor {
	return &Processor{
		reg:   reg,
		engine: engine,
		log:   log,
		store: store,
		rate:  make(map[rateKey]*rateState),
	}
}

// SetPlan installs the currently active deployment plan, the source of
// truth InstallReactiveBlock resolves ingress switches against.
func (p *Processor) SetPlan(pl *plan.Plan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plan = pl
}

// HandleDigestList decodes every record in data and processes each one.
// receivedAt is the controller's wall-clock receipt time of the stream
// frame carrying data, the basis for the overhead metric (a deliberate
// departure from comparing against the device's own clock, which is not
// assumed to be synchronized with the controller's).
func (p *Processor) HandleDigestList(switchName string, data [][]byte, receivedAt time.Time, eps ruleengine.TunnelEndpoint, switchNamer func(int) string) {
	for _, raw := range data {
		rec, err := DecodeRecord(raw)
		if err != nil {
			p.log.Warn("digest record decode failed", "switch", switchName, "error", err)
			continue
		}
		p.handleRecord(switchName, rec, receivedAt, eps, switchNamer)
	}
}

func (p *Processor) handleRecord(switchName string, rec Record, receivedAt time.Time, eps ruleengine.TunnelEndpoint, switchNamer func(int) string) {
	srcIP := ipString(rec.SrcIP)
	dstIP := ipString(rec.DstIP)

	flowLabels := []string{switchName, strconv.Itoa(rec.TunnelID), srcIP, dstIP, strconv.Itoa(rec.SrcPort), strconv.Itoa(rec.DstPort), rec.Protocol}

	if prevSwitch, hostIngress := previousSwitchName(switchName, rec.InPort); !hostIngress {
		prevLabels := []string{prevSwitch, strconv.Itoa(rec.TunnelID), srcIP, dstIP, strconv.Itoa(rec.SrcPort), strconv.Itoa(rec.DstPort), rec.Protocol}
		p.reg.QueueDepth.WithLabelValues(prevLabels...).Set(float64(rec.QueueDepth))
		p.reg.QueueTime.WithLabelValues(prevLabels...).Set(float64(rec.QueueTimeNs))
		p.reg.SwitchTime.WithLabelValues(prevLabels...).Set(float64(rec.SwitchTimeNs))
	}
	p.reg.InterarrivalTime.WithLabelValues(flowLabels...).Set(float64(rec.InterarrivalNs))
	p.reg.PacketLength.WithLabelValues(flowLabels...).Set(float64(rec.PacketLengthBytes))
	p.reg.TotalByteCount.WithLabelValues(flowLabels...).Set(float64(rec.ByteCount))
	p.reg.TotalPacketCount.WithLabelValues(flowLabels...).Set(float64(rec.PacketCount))

	wl := 0.0
	if rec.IsWL {
		wl = 1.0
	}
	p.reg.WeakLearner.WithLabelValues(flowLabels...).Set(wl)

	sendingRate := 0.0
	if rec.InterarrivalNs != 0 {
		sendingRate = 1e9 / float64(rec.InterarrivalNs)
	}
	p.reg.SendingRate.WithLabelValues(flowLabels...).Set(sendingRate)

	throughput, deltaNs := p.updateThroughput(switchName, rec.TunnelID, rec.DigestTimestampNs, rec.ByteCount)
	p.reg.Throughput.WithLabelValues(flowLabels...).Set(throughput)
	p.reg.DigestTimestamp.WithLabelValues(flowLabels...).Set(float64(deltaNs))
	p.reg.LastDigestTimestamp.WithLabelValues(flowLabels...).Set(float64(receivedAt.UnixNano()) / 1e9)

	overheadNs := float64(time.Since(receivedAt).Nanoseconds())
	p.reg.Overhead.WithLabelValues(flowLabels...).Set(overheadNs)

	if p.store != nil {
		p.store.IngestPacket(analytics.Summary{
			BucketTime: receivedAt,
			Switch:     switchName,
			TunnelID:   rec.TunnelID,
			SrcIP:      srcIP,
			DstIP:      dstIP,
			SrcPort:    rec.SrcPort,
			DstPort:    rec.DstPort,
			Protocol:   rec.Protocol,
			Bytes:      int64(rec.PacketLengthBytes),
			Packets:    1,
			Malicious:  rec.IsMalicious,
		})
	}

	if !rec.IsMalicious {
		return
	}

	p.reg.IsMaliciousFlow.WithLabelValues(flowLabels...).Set(1)
	p.reg.MaliciousFlow.WithLabelValues(flowLabels...).Set(1)

	p.mu.Lock()
	pl := p.plan
	p.mu.Unlock()
	if pl == nil {
		p.log.Warn("malicious flow detected but no plan loaded, cannot block", "switch", switchName, "tunnel_id", rec.TunnelID)
		return
	}

	if err := p.engine.InstallReactiveBlock(eps, pl, switchNamer, rec.TunnelID); err != nil {
		p.log.Warn("reactive block install failed", "switch", switchName, "tunnel_id", rec.TunnelID, "error", err)
	}
}

// updateThroughput computes 8*delta_bytes/delta_t in bits per second
// between this digest and the last one seen for (switch, tunnelID).
func (p *Processor) updateThroughput(switchName string, tunnelID int, timestampNs, byteCount uint64) (throughput float64, deltaNs uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := rateKey{sw: switchName, tunnelID: tunnelID}
	prev, ok := p.rate[k]
	if ok && timestampNs > prev.lastTimestampNs {
		deltaNs = timestampNs - prev.lastTimestampNs
		deltaBytes := byteCount - prev.lastByteCount
		throughput = float64(deltaBytes*8) / (float64(deltaNs) / 1e9)
	}

	p.rate[k] = &rateState{lastTimestampNs: timestampNs, lastByteCount: byteCount}
	return throughput, deltaNs
}

// previousSwitchName derives the switch that forwarded this digest's
// packet onto currentSwitch, per the dataplane's in_port convention:
// in_port carries the numeric id of the previous switch, so "s"+in_port
// names it. If that numeric id matches currentSwitch's own numeric
// suffix, the packet ingressed directly from a host on this switch and
// there is no previous-hop to label.
func previousSwitchName(currentSwitch string, inPort int) (prevSwitch string, hostIngress bool) {
	suffix := currentSwitch
	if len(currentSwitch) > 0 {
		suffix = currentSwitch[1:]
	}
	inPortStr := strconv.Itoa(inPort)
	if suffix == inPortStr {
		return "", true
	}
	return "s" + inPortStr, false
}

func ipString(b [4]byte) string {
	return strconv.Itoa(int(b[0])) + "." + strconv.Itoa(int(b[1])) + "." + strconv.Itoa(int(b[2])) + "." + strconv.Itoa(int(b[3]))
}
