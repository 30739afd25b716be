package serve

import (
	vm "github.com/VictoriaMetrics/metrics"
	"github.com/hashicorp/go-metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"math"
	"sort"
	"strings"
	"sync/atomic"
)

// prometheusSink is a go-metrics sink backed by a VictoriaMetrics set, so
// the engine metrics can be scraped in the prometheus text format.
// Counters map to float counters, samples to histograms and gauges to
// callback gauges reading the last value set.
type prometheusSink struct {
	metrics.BlackholeSink
	set    *vm.Set
	gauges *xsync.MapOf[string, *atomic.Uint64]
}

var _ metrics.MetricSink = (*prometheusSink)(nil)

func newPrometheusSink() *prometheusSink {
	return &prometheusSink{
		set:    vm.NewSet(),
		gauges: xsync.NewMapOf[string, *atomic.Uint64](),
	}
}

func (s *prometheusSink) SetGauge(key []string, val float32) {
	s.SetGaugeWithLabels(key, val, nil)
}

func (s *prometheusSink) SetGaugeWithLabels(key []string, val float32, labels []metrics.Label) {
	name := metricName(key, labels)
	bits, loaded := s.gauges.LoadOrCompute(name, func() *atomic.Uint64 {
		return new(atomic.Uint64)
	})
	bits.Store(math.Float64bits(float64(val)))
	if !loaded {
		s.set.GetOrCreateGauge(name, func() float64 {
			return math.Float64frombits(bits.Load())
		})
	}
}

func (s *prometheusSink) IncrCounter(key []string, val float32) {
	s.IncrCounterWithLabels(key, val, nil)
}

func (s *prometheusSink) IncrCounterWithLabels(key []string, val float32, labels []metrics.Label) {
	s.set.GetOrCreateFloatCounter(metricName(key, labels)).Add(float64(val))
}

func (s *prometheusSink) AddSample(key []string, val float32) {
	s.AddSampleWithLabels(key, val, nil)
}

func (s *prometheusSink) AddSampleWithLabels(key []string, val float32, labels []metrics.Label) {
	s.set.GetOrCreateHistogram(metricName(key, labels)).Update(float64(val))
}

// WritePrometheus writes all metrics of the sink plus the process metrics
func (s *prometheusSink) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
	vm.WriteProcessMetrics(w)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

var labelValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// metricName builds a prometheus metric name like
// asyncsock_request_out_count{engine="server",request_type="echo"}
func metricName(key []string, labels []metrics.Label) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(key, "_"))
	if len(labels) == 0 {
		return sb.String()
	}

	sorted := append([]metrics.Label(nil), labels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	sb.WriteByte('{')
	for i, l := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(l.Name)
		sb.WriteString(`="`)
		sb.WriteString(labelValueEscaper.Replace(l.Value))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}
