package main

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	stepScenario = "scenario"

	latencyMetric = "loadtest_step_latency_ms"
	callsMetric   = "loadtest_step_calls_total"
)

type latencySummary struct {
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type stepReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt        time.Time             `json:"started_at"`
	DurationSeconds  float64               `json:"duration_seconds"`
	TotalScenarios   int64                 `json:"total_scenarios"`
	SuccessScenarios int64                 `json:"success_scenarios"`
	FailedScenarios  int64                 `json:"failed_scenarios"`
	ErrorRate        float64               `json:"error_rate"`
	RPS              float64               `json:"rps"`
	SubOrders        int64                 `json:"sub_orders"`
	DuplicateIDs     []uint64              `json:"duplicate_ids"`
	Steps            map[string]stepReport `json:"steps"`
}

// collector пишет задержки и коды ответов шагов в prometheus на собственном реестре,
// а отчёт потом читается из Gather. Отдельно ловятся повторно выданные номера подзаказов.
type collector struct {
	registry *prometheus.Registry
	latency  *prometheus.SummaryVec
	calls    *prometheus.CounterVec

	mu         sync.Mutex
	seenIDs    map[uint64]struct{}
	duplicates []uint64
}

func newCollector() *collector {
	c := &collector{
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       latencyMetric,
			Help:       "Latency of load test steps in milliseconds",
			Objectives: map[float64]float64{0.5: 0.01, 0.95: 0.005, 0.99: 0.001},
			// прогон по -duration может идти часами, окно квантилей не должно сползать
			MaxAge: 24 * time.Hour,
		}, []string{"step"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: callsMetric,
			Help: "Load test step calls by response code",
		}, []string{"step", "code"}),
		seenIDs: make(map[uint64]struct{}),
	}
	c.registry.MustRegister(c.latency, c.calls)
	return c
}

func (c *collector) record(step string, latency time.Duration, code string) {
	c.latency.WithLabelValues(step).Observe(float64(latency.Microseconds()) / 1000.0)
	c.calls.WithLabelValues(step, code).Inc()
}

// recordIDs запоминает номера подзаказов; повтор значит, что счётчик выдал номер дважды.
func (c *collector) recordIDs(ids []uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		if _, dup := c.seenIDs[id]; dup {
			c.duplicates = append(c.duplicates, id)
			continue
		}
		c.seenIDs[id] = struct{}{}
	}
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) (report, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return report{}, err
	}

	steps := make(map[string]*stepReport)
	step := func(m *dto.Metric) *stepReport {
		name := labelValue(m, "step")
		s, ok := steps[name]
		if !ok {
			s = &stepReport{Codes: make(map[string]int64)}
			steps[name] = s
		}
		return s
	}

	for _, family := range families {
		switch family.GetName() {
		case latencyMetric:
			for _, m := range family.GetMetric() {
				step(m).LatencyMs = summaryOf(m.GetSummary())
			}
		case callsMetric:
			for _, m := range family.GetMetric() {
				s := step(m)
				code := labelValue(m, "code")
				n := int64(m.GetCounter().GetValue())
				s.Calls += n
				s.Codes[code] += n
				if isSuccess(code) {
					s.Success += n
				} else {
					s.Failed += n
				}
			}
		}
	}

	c.mu.Lock()
	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		SubOrders:       int64(len(c.seenIDs) + len(c.duplicates)),
		DuplicateIDs:    append([]uint64(nil), c.duplicates...),
		Steps:           make(map[string]stepReport, len(steps)),
	}
	c.mu.Unlock()
	sort.Slice(result.DuplicateIDs, func(i, j int) bool { return result.DuplicateIDs[i] < result.DuplicateIDs[j] })

	for name, s := range steps {
		s.ErrorRate = ratio(s.Failed, s.Calls)
		result.Steps[name] = *s
	}
	if scenarios, ok := result.Steps[stepScenario]; ok {
		result.TotalScenarios = scenarios.Calls
		result.SuccessScenarios = scenarios.Success
		result.FailedScenarios = scenarios.Failed
		result.ErrorRate = scenarios.ErrorRate
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}
	return result, nil
}

func summaryOf(s *dto.Summary) latencySummary {
	var out latencySummary
	if n := s.GetSampleCount(); n > 0 {
		out.Avg = s.GetSampleSum() / float64(n)
	}
	for _, q := range s.GetQuantile() {
		v := q.GetValue()
		if math.IsNaN(v) {
			continue
		}
		switch q.GetQuantile() {
		case 0.5:
			out.P50 = v
		case 0.95:
			out.P95 = v
		case 0.99:
			out.P99 = v
		}
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
