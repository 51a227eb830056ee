// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package orchestrator drives the controller's startup sequence and
// steady-state loop: open one switch session per declared switch, push
// the pipeline, build the spanning tree, program the fabric-wide
// multicast group, then run one receive-dispatch goroutine per switch
// routing packet-ins to ARP learning and digest lists to the telemetry
// processor, while serving configuration uploads, plan inspection, and
// metrics over HTTP.
package orchestrator

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fabricctl/controller/internal/analytics"
	"github.com/fabricctl/controller/internal/arplearn"
	"github.com/fabricctl/controller/internal/config"
	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/metrics"
	"github.com/fabricctl/controller/internal/plan"
	"github.com/fabricctl/controller/internal/ruleengine"
	"github.com/fabricctl/controller/internal/schema"
	"github.com/fabricctl/controller/internal/switchsession"
	"github.com/fabricctl/controller/internal/telemetry"
	"github.com/fabricctl/controller/internal/topology"
	"github.com/prometheus/client_golang/prometheus"
)

// Orchestrator owns every long-lived piece of controller state: the
// switch session managers, the installed topology/schema, and the
// currently applied plan.
type Orchestrator struct {
	cfg   *config.Config
	log   *logging.Logger
	topo  *topology.Topology
	tree  *topology.Tree
	schema *schema.Schema

	engine  *ruleengine.Engine
	learner *arplearn.Learner
	proc    *telemetry.Processor
	reg     *metrics.Registry
	store   *analytics.Collector

	mu       sync.RWMutex
	managers map[string]*switchsession.Manager

	plan atomic.Pointer[plan.Plan]

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs an Orchestrator from cfg. It does not open any switch
// session; call Start for that.
func New(cfg *config.Config, log *logging.Logger) (*Orchestrator, error) {
	s, err := cfg.BuildSchema()
	if err != nil {
		return nil, err
	}

	topo := cfg.BuildTopology()
	for _, w := range topo.Warnings {
		log.Warn("topology consistency warning", "kind", w.Kind.String(), "message", w.String())
	}

	tree, err := topology.BuildSpanningTree(topo)
	if err != nil {
		return nil, err
	}
	for _, w := range tree.Warnings {
		log.Warn("spanning tree consistency warning", "kind", w.Kind.String(), "message", w.String())
	}

	var collector *analytics.Collector
	if cfg.Database != nil && cfg.Database.Path != "" {
		store, err := analytics.Open(cfg.Database.Path)
		if err != nil {
			log.Warn("analytics store open failed, continuing without historical persistence", "error", err)
		} else {
			window := 10 * time.Second
			if cfg.Database.FlushInterval != "" {
				if d, err := time.ParseDuration(cfg.Database.FlushInterval); err == nil {
					window = d
				}
			}
			collector = analytics.NewCollector(store, window)
			collector.StartBackgroundFlush(window)
		}
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	switchPorts := 0
	for _, neighbors := range topo.Adjacency {
		switchPorts += len(neighbors)
	}
	reg.NumSwitches.Set(float64(len(topo.Switches)))
	reg.NumPorts.Set(float64(switchPorts + len(cfg.Hosts)))
	reg.SwitchLinks.Set(float64(len(cfg.Links)))
	reg.HostConnections.Set(float64(len(cfg.Hosts)))
	engine := ruleengine.New(s, log)

	o := &Orchestrator{
		cfg:      cfg,
		log:      log,
		topo:     topo,
		tree:     tree,
		schema:   s,
		engine:   engine,
		learner:  arplearn.New(engine, log),
		reg:      reg,
		store:    collector,
		managers: make(map[string]*switchsession.Manager),
		stopCh:   make(chan struct{}),
	}
	o.proc = telemetry.New(reg, engine, log, collector)
	return o, nil
}

// Start runs the startup sequence: open every switch session, push the
// pipeline, program the multicast group, and launch the per-switch
// receive dispatchers. Before pushing the pipeline it waits up to 5s for
// every switch's first dial; switches still not connected by then are
// skipped by the pipeline push and multicast programming.
func (o *Orchestrator) Start() {
	for _, sc := range o.cfg.SwitchSessionConfigs() {
		mgr := switchsession.NewManager(sc, o.log)
		o.mu.Lock()
		o.managers[sc.SwitchName] = mgr
		o.mu.Unlock()

		go mgr.Run()
		go o.dispatchLoop(sc.SwitchName, mgr)
	}

	o.waitForSessions(5 * time.Second)
	o.pushPipelines()
	o.programMulticastGroup()
}

// waitForSessions gives every manager up to timeout to complete its
// first dial, so PushPipeline isn't attempted against a nil session on
// a fabric that is merely slow to come up.
func (o *Orchestrator) waitForSessions(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		o.mu.RLock()
		allUp := true
		for _, mgr := range o.managers {
			if mgr.Session() == nil && !mgr.Failed() {
				allUp = false
			}
		}
		o.mu.RUnlock()
		if allUp {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// pushPipelines installs the declared schema on every open session and
// subscribes to the telemetry digest.
func (o *Orchestrator) pushPipelines() {
	schemaBlob, err := json.Marshal(o.cfg.Schema)
	if err != nil {
		o.log.Error("marshal schema for pipeline push failed", "error", err)
		return
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	for name, mgr := range o.managers {
		sess := mgr.Session()
		if sess == nil {
			o.log.Warn("skipping pipeline push, no open session", "switch", name)
			continue
		}
		if err := sess.PushPipeline(schemaBlob, nil); err != nil {
			o.log.Warn("push pipeline failed", "switch", name, "error", err)
			continue
		}

		digestEntry, err := o.schema.BuildDigestEntry("flow_digest")
		if err != nil {
			continue
		}
		if err := sess.Write(switchsession.Update{Type: switchsession.Insert, Digest: &digestEntry}); err != nil {
			o.log.Warn("digest subscription failed", "switch", name, "error", err)
		}
	}
}

// programMulticastGroup installs group 1, the fabric-wide flood group, on
// every open session: its replicas are the switch's spanning-tree
// neighbor ports plus its host port, if any.
func (o *Orchestrator) programMulticastGroup() {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for name, mgr := range o.managers {
		sess := mgr.Session()
		if sess == nil {
			continue
		}
		replicas := topology.MulticastReplicas(o.topo, o.tree, name, -1)
		entry := schema.BuildMulticastEntry(1, toReplicas(replicas))
		if err := sess.Write(switchsession.Update{Type: switchsession.Insert, Multicast: &entry}); err != nil {
			o.log.Warn("multicast group program failed", "switch", name, "error", err)
		}
	}
}

func toReplicas(ports []int) []schema.Replica {
	out := make([]schema.Replica, 0, len(ports))
	for _, p := range ports {
		out = append(out, schema.Replica{Port: uint32(p)})
	}
	return out
}

// Stop closes every switch session and halts the receive dispatchers.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, mgr := range o.managers {
		mgr.Stop()
	}
}

// CurrentPlan returns the currently applied plan, or nil if none has
// been uploaded yet.
func (o *Orchestrator) CurrentPlan() *plan.Plan {
	return o.plan.Load()
}
