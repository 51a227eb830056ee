// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package telemetry

import (
	"testing"
	"time"

	"github.com/fabricctl/controller/internal/logging"
	"github.com/fabricctl/controller/internal/metrics"
	"github.com/fabricctl/controller/internal/plan"
	"github.com/fabricctl/controller/internal/ruleengine"
	"github.com/fabricctl/controller/internal/schema"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	entries []schema.TableEntry
	writes  []ruleengine.Update
}

func (f *fakeConn) ReadTableEntries(tableID uint32) ([]schema.TableEntry, error) {
	return nil, nil
}

func (f *fakeConn) Write(u ruleengine.Update) error {
	f.writes = append(f.writes, u)
	return nil
}

type fakeEndpoints struct {
	conns map[string]ruleengine.TableReaderWriter
}

func (f *fakeEndpoints) Conn(name string) (ruleengine.TableReaderWriter, bool) {
	c, ok := f.conns[name]
	return c, ok
}

func (f *fakeEndpoints) PortTo(sw, neighbor string) (int, bool) { return 0, false }

func testSchema() *schema.Schema {
	s := schema.New()
	s.RegisterTable(schema.Table{ID: 2, Name: "myTunnel_exact", Fields: map[string]schema.Entry{
		"hdr.myTunnel.dst_id": {ID: 1, Name: "hdr.myTunnel.dst_id", BitWidth: 32, Match: schema.MatchExact},
	}})
	s.RegisterAction(schema.ActionDef{ID: 5, Name: "drop", Params: map[string]schema.Entry{}})
	return s
}

func TestHandleDigestList_PublishesGauges(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	engine := ruleengine.New(testSchema(), logging.New(logging.DefaultConfig()))
	proc := New(reg, engine, logging.New(logging.DefaultConfig()), nil)

	raw := sampleRecordBytes()
	raw[39] = 0 // is_malicious field: force non-malicious for this test

	// in_port (bytes 4-5) is 1, so the digest arriving at s2 was
	// forwarded by s1: the previous-hop gauges are labeled "s1", not "s2".
	eps := &fakeEndpoints{conns: map[string]ruleengine.TableReaderWriter{}}
	proc.HandleDigestList("s2", [][]byte{raw}, time.Now().Add(-5*time.Millisecond), eps, func(id int) string { return "s2" })

	val := testutilGaugeValue(t, reg.QueueDepth, "s1", "124", "10.0.1.1", "10.0.1.4", "5000", "80", "TCP")
	assert.Equal(t, 3.0, val)
}

func TestHandleDigestList_HostIngressSkipsPreviousHopGauges(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	engine := ruleengine.New(testSchema(), logging.New(logging.DefaultConfig()))
	proc := New(reg, engine, logging.New(logging.DefaultConfig()), nil)

	raw := sampleRecordBytes()
	raw[39] = 0 // is_malicious field: force non-malicious for this test

	// in_port is 1 and the receiving switch is "s1": the packet
	// ingressed directly from a host, so no previous-hop exists.
	eps := &fakeEndpoints{conns: map[string]ruleengine.TableReaderWriter{}}
	proc.HandleDigestList("s1", [][]byte{raw}, time.Now().Add(-5*time.Millisecond), eps, func(id int) string { return "s1" })

	val := testutilGaugeValue(t, reg.QueueDepth, "s1", "124", "10.0.1.1", "10.0.1.4", "5000", "80", "TCP")
	assert.Equal(t, 0.0, val)
}

func TestHandleDigestList_MaliciousTriggersReactiveBlock(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	engine := ruleengine.New(testSchema(), logging.New(logging.DefaultConfig()))
	proc := New(reg, engine, logging.New(logging.DefaultConfig()), nil)

	// Path [1,2,4] encodes to tunnel id 124, the sample record's tunnel_id.
	pl := &plan.Plan{Routes: map[string][]int{"1,4": {1, 2, 4}}}
	proc.SetPlan(pl)

	conn := &fakeConn{}
	eps := &fakeEndpoints{conns: map[string]ruleengine.TableReaderWriter{"s1": conn}}

	raw := sampleRecordBytes()
	proc.HandleDigestList("s1", [][]byte{raw}, time.Now(), eps, func(id int) string { return "s1" })

	require.Len(t, conn.writes, 1)
}

func testutilGaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	g, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}
