package build

import (
	"sync"
	"time"
)

// PageResult is the outcome of building one page.
type PageResult struct {
	Page        string
	OutputPath  string
	Duration    time.Duration
	CacheHit    bool
	Diagnostics int
	Error       error
}

// BuildMetrics tracks build performance.
type BuildMetrics struct {
	TotalPages      int64
	SuccessfulPages int64
	FailedPages     int64
	CacheHits       int64
	Diagnostics     int64
	AverageDuration time.Duration
	TotalDuration   time.Duration
	mutex           sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker.
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordPage records a page result in the metrics.
func (bm *BuildMetrics) RecordPage(result PageResult) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalPages++
	bm.TotalDuration += result.Duration
	bm.Diagnostics += int64(result.Diagnostics)

	if result.CacheHit {
		bm.CacheHits++
	}

	if result.Error != nil {
		bm.FailedPages++
	} else {
		bm.SuccessfulPages++
	}

	bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalPages)
}

// GetSnapshot returns a copy of the current metrics.
func (bm *BuildMetrics) GetSnapshot() BuildMetrics {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return BuildMetrics{
		TotalPages:      bm.TotalPages,
		SuccessfulPages: bm.SuccessfulPages,
		FailedPages:     bm.FailedPages,
		CacheHits:       bm.CacheHits,
		Diagnostics:     bm.Diagnostics,
		AverageDuration: bm.AverageDuration,
		TotalDuration:   bm.TotalDuration,
	}
}

// Reset resets all metrics.
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalPages = 0
	bm.SuccessfulPages = 0
	bm.FailedPages = 0
	bm.CacheHits = 0
	bm.Diagnostics = 0
	bm.AverageDuration = 0
	bm.TotalDuration = 0
}

// GetCacheHitRate returns the cache hit rate as a percentage.
func (bm *BuildMetrics) GetCacheHitRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalPages == 0 {
		return 0.0
	}
	return float64(bm.CacheHits) / float64(bm.TotalPages) * 100.0
}

// GetSuccessRate returns the success rate as a percentage.
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalPages == 0 {
		return 0.0
	}
	return float64(bm.SuccessfulPages) / float64(bm.TotalPages) * 100.0
}
