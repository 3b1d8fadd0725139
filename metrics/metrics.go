// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics records timings, counts and size distributions of a
// translation.
package metrics

import (
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	go_metrics "github.com/rcrowley/go-metrics"
)

// Well-known metric names.
const (
	LuauTranslate     = "luau_translate"
	LuauAnalyze       = "luau_analyze"
	LuauEmit          = "luau_emit"
	LuauFunctions     = "luau_functions"
	LuauFunctionBytes = "luau_function_bytes"
	WasmDecode        = "wasm_decode"
)

// Metrics is a named collection of timers, histograms and counters. Metrics
// are created on first use.
type Metrics interface {
	Timer(name string) Timer
	Histogram(name string) Histogram
	Counter(name string) Counter

	// All returns the current value of every metric keyed by its
	// formatted name: timer_<name>_ns, histogram_<name> or counter_<name>.
	All() map[string]any
	Clear()
	json.Marshaler
}

// Timer accumulates elapsed time over one or more Start/Stop intervals.
type Timer interface {
	Value() any
	Int64() int64
	Start()
	// Stop adds the nanoseconds since the last Start to the timer and
	// returns them. Stopping a timer that is not running returns 0.
	Stop() int64
}

// Histogram summarizes a distribution of values.
type Histogram interface {
	Value() any
	Update(int64)
}

// Counter is a monotonically increasing count.
type Counter interface {
	Value() any
	Incr()
	Add(n uint64)
}

type metrics struct {
	mtx        sync.Mutex
	timers     map[string]*timer
	histograms map[string]*histogram
	counters   map[string]*counter
}

// New returns an empty Metrics collection.
func New() Metrics {
	m := &metrics{}
	m.Clear()
	return m
}

// NoOp returns a Metrics implementation that records nothing. Translations
// use it unless a collection is supplied.
func NoOp() Metrics {
	return noOpMetricsInstance
}

// Keys returns the formatted names of all metrics in m, sorted.
func Keys(m Metrics) []string {
	all := m.All()
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *metrics) Timer(name string) Timer {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	t, ok := m.timers[name]
	if !ok {
		t = &timer{}
		m.timers[name] = t
	}
	return t
}

func (m *metrics) Histogram(name string) Histogram {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	h, ok := m.histograms[name]
	if !ok {
		// Reservoir size and alpha factor are the go-metrics defaults.
		h = &histogram{go_metrics.NewHistogram(go_metrics.NewExpDecaySample(1028, 0.015))}
		m.histograms[name] = h
	}
	return h
}

func (m *metrics) Counter(name string) Counter {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = &counter{}
		m.counters[name] = c
	}
	return c
}

func (m *metrics) All() map[string]any {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	result := make(map[string]any, len(m.timers)+len(m.histograms)+len(m.counters))
	for name, t := range m.timers {
		result["timer_"+name+"_ns"] = t.Value()
	}
	for name, h := range m.histograms {
		result["histogram_"+name] = h.Value()
	}
	for name, c := range m.counters {
		result["counter_"+name] = c.Value()
	}
	return result
}

func (m *metrics) Clear() {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.timers = map[string]*timer{}
	m.histograms = map[string]*histogram{}
	m.counters = map[string]*counter{}
}

func (m *metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.All())
}

type timer struct {
	mtx   sync.Mutex
	start time.Time
	value int64
}

func (t *timer) Start() {
	t.mtx.Lock()
	t.start = time.Now()
	t.mtx.Unlock()
}

func (t *timer) Stop() int64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.start.IsZero() {
		return 0
	}
	delta := time.Since(t.start).Nanoseconds()
	t.value += delta
	t.start = time.Time{}
	return delta
}

func (t *timer) Value() any {
	return t.Int64()
}

func (t *timer) Int64() int64 {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.value
}

type histogram struct {
	hist go_metrics.Histogram
}

func (h *histogram) Update(v int64) {
	h.hist.Update(v)
}

// Value returns the count, extremes, mean and the median, 90th and 99th
// percentiles of the recorded values.
func (h *histogram) Value() any {
	snap := h.hist.Snapshot()
	ps := snap.Percentiles([]float64{0.5, 0.9, 0.99})
	return map[string]any{
		"count":  snap.Count(),
		"min":    snap.Min(),
		"max":    snap.Max(),
		"mean":   snap.Mean(),
		"median": ps[0],
		"90%":    ps[1],
		"99%":    ps[2],
	}
}

type counter struct {
	c uint64
}

func (c *counter) Incr() {
	atomic.AddUint64(&c.c, 1)
}

func (c *counter) Add(n uint64) {
	atomic.AddUint64(&c.c, n)
}

func (c *counter) Value() any {
	return atomic.LoadUint64(&c.c)
}

type noOpMetrics struct{}
type noOpTimer struct{}
type noOpHistogram struct{}
type noOpCounter struct{}

var noOpMetricsInstance = &noOpMetrics{}

func (*noOpMetrics) Timer(string) Timer         { return noOpTimer{} }
func (*noOpMetrics) Histogram(string) Histogram { return noOpHistogram{} }
func (*noOpMetrics) Counter(string) Counter     { return noOpCounter{} }
func (*noOpMetrics) All() map[string]any        { return nil }
func (*noOpMetrics) Clear()                     {}
func (*noOpMetrics) MarshalJSON() ([]byte, error) {
	return []byte(`{}`), nil
}

func (noOpTimer) Start()       {}
func (noOpTimer) Stop() int64  { return 0 }
func (noOpTimer) Value() any   { return 0 }
func (noOpTimer) Int64() int64 { return 0 }

func (noOpHistogram) Update(int64) {}
func (noOpHistogram) Value() any   { return nil }

func (noOpCounter) Incr()      {}
func (noOpCounter) Add(uint64) {}
func (noOpCounter) Value() any { return 0 }
