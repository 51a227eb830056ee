// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the controller's static HCL configuration: the
// declared fabric topology (switches, links, hosts), each switch's
// control-channel connection parameters, the device schema the rule
// engine programs against, and the ambient controller settings (HTTP
// listeners, the analytics store, logging, NTP drift checking).
//
// This is deliberately a single, flat document: unlike a firewall's
// running configuration, nothing here is edited and written back by the
// controller itself, so there is no round-trip HCL-preserving writer —
// hclsimple's decode-struct-tags path is the whole of it.
package config

import "time"

// SchemaVersion is the current config document version. Loading rejects
// a document declaring a different value so a future incompatible
// layout fails loudly instead of decoding partially.
const SchemaVersion = "1.0"

// Config is the top-level controller configuration document.
type Config struct {
	SchemaVersion string `hcl:"schema_version,optional"`

	Switches []SwitchConfig `hcl:"switch,block"`
	Links    []LinkConfig   `hcl:"link,block"`
	Hosts    []HostConfig   `hcl:"host,block"`
	Schema   *SchemaConfig  `hcl:"schema,block"`

	HTTP     *HTTPConfig     `hcl:"http,block"`
	Database *DatabaseConfig `hcl:"database,block"`
	Logging  *LoggingConfig  `hcl:"logging,block"`
	NTP      *NTPConfig      `hcl:"ntp,block"`
	TSNet    *TSNetConfig    `hcl:"tsnet,block"`

	// StateDir holds the PID file and run-time state the cmd package's
	// start/stop/reload lifecycle manages. Defaults to /var/run/fabricctl.
	StateDir string `hcl:"state_dir,optional"`
}

// SwitchConfig declares one fabric switch's identity and how to reach
// its control agent. SwitchID is the small integer the deployment plan
// and tunnel-id encoding use; Name is the human label used everywhere
// else (logs, metrics labels, topology lookups).
type SwitchConfig struct {
	Name     string `hcl:"name,label"`
	SwitchID int    `hcl:"switch_id"`

	SocketPath       string `hcl:"socket_path"`
	StreamSocketPath string `hcl:"stream_socket_path,optional"`
	Host             string `hcl:"host,optional"`

	DialTimeout       string `hcl:"dial_timeout,optional"`
	InboundQueueDepth int    `hcl:"inbound_queue_depth,optional"`

	// WeakLearner marks this switch as one the classifier-entry upload
	// programs a decision tree into, per the deployment plan's WLNodes.
	WeakLearner bool `hcl:"weak_learner,optional"`
}

// LinkConfig declares one undirected switch-switch link.
type LinkConfig struct {
	SwitchA string `hcl:"switch_a"`
	PortA   int    `hcl:"port_a"`
	SwitchB string `hcl:"switch_b"`
	PortB   int    `hcl:"port_b"`
}

// HostConfig declares one host attached to a switch.
type HostConfig struct {
	Name   string `hcl:"name,label"`
	Switch string `hcl:"switch"`
	Port   int    `hcl:"port"`
	MAC    string `hcl:"mac"`
	IP     string `hcl:"ip"`
}

// SchemaConfig declares the device's reflective table/action schema:
// the P4Info-equivalent the rule engine resolves match-field and action
// parameter encodings against.
type SchemaConfig struct {
	Tables  []SchemaTable  `hcl:"table,block"`
	Actions []SchemaAction `hcl:"action,block"`
	Digests []SchemaDigest `hcl:"digest,block"`
}

// SchemaTable declares one match-action table.
type SchemaTable struct {
	Name   string             `hcl:"name,label"`
	ID     int                `hcl:"id"`
	Fields []SchemaTableField `hcl:"field,block"`
}

// SchemaTableField declares one match field within a table.
type SchemaTableField struct {
	Name     string `hcl:"name,label"`
	ID       int    `hcl:"id"`
	BitWidth int    `hcl:"bit_width"`
	// Match is one of exact, lpm, ternary, range.
	Match string `hcl:"match"`
}

// SchemaAction declares one action and its parameters.
type SchemaAction struct {
	Name   string              `hcl:"name,label"`
	ID     int                 `hcl:"id"`
	Params []SchemaActionParam `hcl:"param,block"`
}

// SchemaActionParam declares one action parameter.
type SchemaActionParam struct {
	Name     string `hcl:"name,label"`
	ID       int    `hcl:"id"`
	BitWidth int    `hcl:"bit_width"`
}

// SchemaDigest declares one digest stream (e.g. the per-flow telemetry
// digest) and the controller-side id it is dispatched under.
type SchemaDigest struct {
	Name string `hcl:"name,label"`
	ID   int    `hcl:"id"`
}

// HTTPConfig controls the controller's HTTP surface: plan uploads, the
// /plan inspection endpoint, and /metrics.
type HTTPConfig struct {
	ListenAddr string `hcl:"listen_addr,optional"`
}

// DatabaseConfig controls the analytics SQLite store.
type DatabaseConfig struct {
	Path            string `hcl:"path,optional"`
	RetentionPeriod string `hcl:"retention_period,optional"`
	FlushInterval   string `hcl:"flush_interval,optional"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string       `hcl:"level,optional"`
	JSON   *bool        `hcl:"json,optional"`
	Syslog *SyslogBlock `hcl:"syslog,block"`
}

// SyslogBlock mirrors logging.SyslogConfig as an HCL block.
type SyslogBlock struct {
	Enabled  bool   `hcl:"enabled,optional"`
	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	Protocol string `hcl:"protocol,optional"`
	Tag      string `hcl:"tag,optional"`
}

// NTPConfig controls the startup clock-drift check: the controller
// queries Servers once and logs a warning for each reachable server
// whose clock offset exceeds MaxDrift; startup continues either way.
type NTPConfig struct {
	Servers  []string `hcl:"servers,optional"`
	MaxDrift string   `hcl:"max_drift,optional"`
}

// TSNetConfig configures serving the controller's HTTP surface over an
// embedded Tailscale node alongside the plain listener, so operators can
// also reach /plan and /metrics over the fabric's private overlay.
type TSNetConfig struct {
	Enabled   bool   `hcl:"enabled,optional"`
	Hostname  string `hcl:"hostname,optional"`
	AuthKey   string `hcl:"auth_key,optional"`
	Ephemeral bool   `hcl:"ephemeral,optional"`
}

// dialTimeout parses DialTimeout, defaulting to 5s on empty or
// unparseable input.
func (s SwitchConfig) dialTimeout() time.Duration {
	if s.DialTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(s.DialTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
