package build

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildMetrics(t *testing.T) {
	metrics := NewBuildMetrics()
	assert.Equal(t, 0.0, metrics.GetCacheHitRate())
	assert.Equal(t, 0.0, metrics.GetSuccessRate())

	metrics.RecordPage(PageResult{Page: "a", Duration: 10 * time.Millisecond, CacheHit: true, Diagnostics: 2})
	metrics.RecordPage(PageResult{Page: "b", Duration: 30 * time.Millisecond, Error: errors.New("boom")})

	snapshot := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snapshot.TotalPages)
	assert.Equal(t, int64(1), snapshot.SuccessfulPages)
	assert.Equal(t, int64(1), snapshot.FailedPages)
	assert.Equal(t, int64(2), snapshot.Diagnostics)
	assert.Equal(t, 20*time.Millisecond, snapshot.AverageDuration)
	assert.Equal(t, 50.0, metrics.GetCacheHitRate())
	assert.Equal(t, 50.0, metrics.GetSuccessRate())

	metrics.Reset()
	assert.Equal(t, int64(0), metrics.GetSnapshot().TotalPages)
}

func TestBuildMetricsConcurrent(t *testing.T) {
	metrics := NewBuildMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.RecordPage(PageResult{Duration: time.Millisecond})
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), metrics.GetSnapshot().TotalPages)
}
