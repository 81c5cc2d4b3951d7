package main

import (
	"slices"
	"time"
)

type GenerateResponse struct {
	Images   []string `json:"images"`
	Mock     bool     `json:"mock"`
	Fallback bool     `json:"fallback"`
	Error    string   `json:"error"`
	Detail   string   `json:"detail"`
}

const (
	outcomeOK       = "ok"
	outcomeMock     = "mock"
	outcomeFallback = "fallback"
	outcomeError    = "error"
)

var outcomes = []string{outcomeOK, outcomeMock, outcomeFallback, outcomeError}

type BenchResult struct {
	File     string
	Format   string
	Duration time.Duration
	Images   int
	Mock     bool
	Fallback bool
	Err      error
	Size     int64
}

// Outcome classifies how the proxy answered: an edited image, the mock echo,
// the fallback echo, or an error.
func (r BenchResult) Outcome() string {
	switch {
	case r.Err != nil:
		return outcomeError
	case r.Mock:
		return outcomeMock
	case r.Fallback:
		return outcomeFallback
	default:
		return outcomeOK
	}
}

// Agg summarizes the results for one image format. Latencies and sizes only
// cover answered requests.
type Agg struct {
	Outcomes   map[string]int
	Latencies  []time.Duration
	InputBytes int64
	Images     int
}

func newAgg() *Agg {
	return &Agg{Outcomes: map[string]int{}}
}

func (a *Agg) add(r BenchResult) {
	outcome := r.Outcome()
	a.Outcomes[outcome]++
	if outcome == outcomeError {
		return
	}
	a.Latencies = append(a.Latencies, r.Duration)
	a.InputBytes += r.Size
	a.Images += r.Images
}

func (a *Agg) merge(other *Agg) {
	for k, v := range other.Outcomes {
		a.Outcomes[k] += v
	}
	a.Latencies = append(a.Latencies, other.Latencies...)
	a.InputBytes += other.InputBytes
	a.Images += other.Images
}

func (a *Agg) Requests() int {
	n := 0
	for _, v := range a.Outcomes {
		n += v
	}
	return n
}

// Percentile returns the nearest-rank latency percentile, zero when nothing answered.
func (a *Agg) Percentile(p float64) time.Duration {
	if len(a.Latencies) == 0 {
		return 0
	}
	sorted := slices.Clone(a.Latencies)
	slices.Sort(sorted)
	idx := int(p*float64(len(sorted))+0.5) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

func (a *Agg) AvgInput() int64 {
	if len(a.Latencies) == 0 {
		return 0
	}
	return a.InputBytes / int64(len(a.Latencies))
}
