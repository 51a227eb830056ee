// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics defines the Prometheus gauges the controller exposes
// (see the observability surface): one registry; the per-digest gauges are
// labeled by switch, flow and the flow's IP/port/protocol endpoints.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// flowLabels is the label set shared by every per-digest gauge.
var flowLabels = []string{"switch", "flow", "src_ip", "dst_ip", "src_port", "dst_port", "protocol"}

// Registry holds every gauge the digest processor publishes to, plus the
// static topology gauges set once at startup and the plan gauges set on
// each plan apply.
type Registry struct {
	QueueDepth          *prometheus.GaugeVec
	QueueTime           *prometheus.GaugeVec
	SwitchTime          *prometheus.GaugeVec
	InterarrivalTime    *prometheus.GaugeVec
	PacketLength        *prometheus.GaugeVec
	SendingRate         *prometheus.GaugeVec
	Throughput          *prometheus.GaugeVec
	TotalByteCount      *prometheus.GaugeVec
	TotalPacketCount    *prometheus.GaugeVec
	DigestTimestamp     *prometheus.GaugeVec
	LastDigestTimestamp *prometheus.GaugeVec
	Overhead            *prometheus.GaugeVec
	WeakLearner         *prometheus.GaugeVec
	IsMaliciousFlow     *prometheus.GaugeVec
	MaliciousFlow       *prometheus.GaugeVec

	NumSwitches      prometheus.Gauge
	NumPorts         prometheus.Gauge
	SwitchLinks      prometheus.Gauge
	HostConnections  prometheus.Gauge
	PlanNodesDeployed prometheus.Gauge
	PlanAvgPathWeight prometheus.Gauge
	PlanPercentCovered prometheus.Gauge
}

func gaugeVec(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, flowLabels)
}

// NewRegistry constructs and registers every gauge against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		QueueDepth:          gaugeVec("fabric_queue_depth", "Queue depth reported at digest time"),
		QueueTime:           gaugeVec("fabric_queue_time_ns", "Queueing time in nanoseconds"),
		SwitchTime:          gaugeVec("fabric_switch_time_ns", "Switch processing time in nanoseconds"),
		InterarrivalTime:    gaugeVec("fabric_interarrival_time_ns", "Inter-packet arrival time in nanoseconds"),
		PacketLength:        gaugeVec("fabric_packet_length_bytes", "Packet length in bytes"),
		SendingRate:         gaugeVec("fabric_sending_rate", "1/interarrival, packets per second"),
		Throughput:          gaugeVec("fabric_throughput_bps", "8*delta_bytes/delta_t, bits per second"),
		TotalByteCount:      gaugeVec("fabric_total_byte_count", "Cumulative byte count reported by the device"),
		TotalPacketCount:    gaugeVec("fabric_total_packet_count", "Cumulative packet count reported by the device"),
		DigestTimestamp:     gaugeVec("fabric_digest_timestamp_delta_ns", "Delta between successive digest timestamps"),
		LastDigestTimestamp: gaugeVec("fabric_last_digest_timestamp", "Wall-clock time of the last digest for this flow"),
		Overhead:            gaugeVec("fabric_overhead_ns", "Controller-side end-to-end latency from stream receipt to publication"),
		WeakLearner:         gaugeVec("fabric_weak_learner", "Observed is_wl value from the digest"),
		IsMaliciousFlow:     gaugeVec("fabric_ismalicious_flow", "Observed is_malicious value from the digest"),
		MaliciousFlow:       gaugeVec("fabric_malicious_flow", "Set to 1 when a flow has been flagged and a block installed"),

		NumSwitches:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "fabric_num_switches", Help: "Number of switches in the declared topology"}),
		NumPorts:        prometheus.NewGauge(prometheus.GaugeOpts{Name: "fabric_num_ports", Help: "Total number of declared ports across all switches"}),
		SwitchLinks:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "fabric_switch_links", Help: "Number of switch-to-switch links"}),
		HostConnections: prometheus.NewGauge(prometheus.GaugeOpts{Name: "fabric_host_connections", Help: "Number of host-to-switch links"}),

		PlanNodesDeployed:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "fabric_plan_num_nodes_deployed", Help: "Nodes deployed per the last applied plan"}),
		PlanAvgPathWeight:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "fabric_plan_average_path_weight", Help: "Average path weight per the last applied plan"}),
		PlanPercentCovered: prometheus.NewGauge(prometheus.GaugeOpts{Name: "fabric_plan_percentage_covered", Help: "Percentage covered per the last applied plan"}),
	}

	for _, c := range []prometheus.Collector{
		r.QueueDepth, r.QueueTime, r.SwitchTime, r.InterarrivalTime, r.PacketLength,
		r.SendingRate, r.Throughput, r.TotalByteCount, r.TotalPacketCount,
		r.DigestTimestamp, r.LastDigestTimestamp, r.Overhead, r.WeakLearner,
		r.IsMaliciousFlow, r.MaliciousFlow,
		r.NumSwitches, r.NumPorts, r.SwitchLinks, r.HostConnections,
		r.PlanNodesDeployed, r.PlanAvgPathWeight, r.PlanPercentCovered,
	} {
		reg.MustRegister(c)
	}

	return r
}
