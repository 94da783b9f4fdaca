// Package telemetry keeps in-process service metrics: monotonic business
// counters, gauges sampled at scrape time and HTTP request histograms. They
// are exported in the Prometheus text format.
package telemetry

import (
	"sort"
	"sync"
	"sync/atomic"
)

type Config struct {
	ServiceName    string
	Environment    string
	MetricsEnabled *bool // nil means enabled
}

func (c Config) metricsOn() bool {
	return c.MetricsEnabled == nil || *c.MetricsEnabled
}

func BoolPtr(b bool) *bool {
	return &b
}

// defaultDurationBuckets are request duration boundaries in seconds.
var defaultDurationBuckets = []float64{
	0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
}

type gaugeFunc struct {
	help string
	fn   func() int64
}

// Provider owns every metric of the process. Its Inc method satisfies the
// booking service's counter sink.
type Provider struct {
	cfg Config

	countersMu sync.RWMutex
	counters   map[string]*int64

	gaugesMu sync.RWMutex
	gauges   map[string]gaugeFunc

	activeRequests int64
	requests       *labeledHistograms
}

func NewProvider(cfg Config) *Provider {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "booking-service"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	return &Provider{
		cfg:      cfg,
		counters: make(map[string]*int64),
		gauges:   make(map[string]gaugeFunc),
		requests: &labeledHistograms{items: make(map[string]*histogram)},
	}
}

// Inc adds one to the named counter.
func (p *Provider) Inc(name string) {
	p.countersMu.RLock()
	v, ok := p.counters[name]
	p.countersMu.RUnlock()
	if !ok {
		p.countersMu.Lock()
		if v, ok = p.counters[name]; !ok {
			v = new(int64)
			p.counters[name] = v
		}
		p.countersMu.Unlock()
	}
	atomic.AddInt64(v, 1)
}

// Counter returns the current value of name, zero if it was never incremented.
func (p *Provider) Counter(name string) int64 {
	p.countersMu.RLock()
	defer p.countersMu.RUnlock()
	if v, ok := p.counters[name]; ok {
		return atomic.LoadInt64(v)
	}
	return 0
}

// RegisterGauge exposes fn's value under name; fn is called on every scrape.
func (p *Provider) RegisterGauge(name, help string, fn func() int64) {
	p.gaugesMu.Lock()
	p.gauges[name] = gaugeFunc{help: help, fn: fn}
	p.gaugesMu.Unlock()
}

func (p *Provider) ActiveRequests() int64 {
	return atomic.LoadInt64(&p.activeRequests)
}

// RequestHistogram returns the duration histogram for one label set, or nil.
func (p *Provider) RequestHistogram(method, route, status string) *histogram {
	return p.requests.snapshot()[LabelsKey(method, route, status)]
}

func (p *Provider) counterSnapshot() map[string]int64 {
	p.countersMu.RLock()
	defer p.countersMu.RUnlock()
	cp := make(map[string]int64, len(p.counters))
	for k, v := range p.counters {
		cp[k] = atomic.LoadInt64(v)
	}
	return cp
}

func (p *Provider) gaugeSnapshot() map[string]gaugeFunc {
	p.gaugesMu.RLock()
	defer p.gaugesMu.RUnlock()
	cp := make(map[string]gaugeFunc, len(p.gauges))
	for k, v := range p.gauges {
		cp[k] = v
	}
	return cp
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
