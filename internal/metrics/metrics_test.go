package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/slotwire/internal/signal"
)

type owner struct{}

func gather(t *testing.T, p *Prom) map[string][]*dto.Metric {
	t.Helper()
	families, err := p.Gatherer().Gather()
	require.NoError(t, err)

	out := make(map[string][]*dto.Metric)
	for _, f := range families {
		out[f.GetName()] = f.GetMetric()
	}
	return out
}

func value(m *dto.Metric) float64 {
	if m.GetCounter() != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestCollector_RegistryStats(t *testing.T) {
	reg := signal.NewRegistry(signal.WithExceptionHandler(func(error) {}))
	sig := signal.New[int](&owner{}, signal.WithRegistry(reg))
	sig.Connect(signal.SlotFunc(func(any, int) {}), nil)
	sig.Connect(signal.NewSlot(func(any, int) error { return errors.New("x") }), nil)
	sig.Emit(1)

	p := NewProm(reg)
	got := gather(t, p)

	want := map[string]float64{
		"slotwire_connections":       2,
		"slotwire_senders":           1,
		"slotwire_emissions_total":   1,
		"slotwire_slot_calls_total":  2,
		"slotwire_slot_errors_total": 1,
		"slotwire_slot_panics_total": 0,
	}
	for name, v := range want {
		require.Len(t, got[name], 1, name)
		assert.Equal(t, v, value(got[name][0]), name)
	}
}

func TestCollector_Streams(t *testing.T) {
	reg := signal.NewRegistry()
	stream := signal.NewStream[string](&owner{}, signal.WithRegistry(reg))
	stream.Emit("a")
	stream.Emit("b")

	p := NewProm(reg)
	p.Collector.AddStream("events", stream)

	got := gather(t, p)
	require.Len(t, got["slotwire_stream_pending"], 1)
	m := got["slotwire_stream_pending"][0]
	assert.Equal(t, 2.0, value(m))
	require.Len(t, m.GetLabel(), 1)
	assert.Equal(t, "events", m.GetLabel()[0].GetValue())

	p.Collector.RemoveStream("events")
	assert.Empty(t, gather(t, p)["slotwire_stream_pending"])
}

func TestProm_Handler(t *testing.T) {
	p := NewProm(signal.NewRegistry())

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "slotwire_connections 0")
}
