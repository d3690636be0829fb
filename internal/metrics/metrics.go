package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"sdfrontend/internal/core"
)

// MetricsConfig configuration for MetricsService
type MetricsConfig struct {
	SaveInterval time.Duration
	HistorySize  int
	Storage      core.StorageInterface
	Logger       core.Logger
}

// MetricsService keeps generation usage statistics and persists them
// through the configured storage, at most once per save interval.
type MetricsService struct {
	totals         counters
	maxHistorySize int

	mu          sync.Mutex // guards the fields below
	history     recordRing
	lastMinute  minuteWindow
	lastRequest time.Time
	lastSave    time.Time

	saveInterval time.Duration
	storage      core.StorageInterface
	logger       core.Logger

	closeOnce sync.Once
	closeErr  error
}

type counters struct {
	total        atomic.Int64
	succeeded    atomic.Int64
	failed       atomic.Int64
	responseTime atomic.Int64
}

func (c *counters) add(success bool, responseTime int64) {
	c.total.Add(1)
	c.responseTime.Add(responseTime)
	if success {
		c.succeeded.Add(1)
	} else {
		c.failed.Add(1)
	}
}

func (c *counters) restore(stats *core.RequestStats) {
	c.total.Store(stats.TotalRequests)
	c.succeeded.Store(stats.SuccessfulRequests)
	c.failed.Store(stats.FailedRequests)
	c.responseTime.Store(stats.TotalResponseTime)
}

// recordRing holds the newest records up to its capacity.
type recordRing struct {
	buf  []core.RequestRecord
	next int
}

func newRecordRing(capacity int) recordRing {
	return recordRing{buf: make([]core.RequestRecord, 0, capacity)}
}

func (r *recordRing) push(rec core.RequestRecord) {
	if len(r.buf) < cap(r.buf) {
		r.buf = append(r.buf, rec)
		return
	}
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
}

// ordered returns a copy, oldest first.
func (r *recordRing) ordered() []core.RequestRecord {
	out := make([]core.RequestRecord, len(r.buf))
	n := copy(out, r.buf[r.next:])
	copy(out[n:], r.buf[:r.next])
	return out
}

// minuteWindow tracks request times of the last minute.
type minuteWindow struct {
	stamps []time.Time
}

func (w *minuteWindow) observe(now time.Time) {
	w.stamps = append(w.stamps, now)
	w.expire(now)
}

func (w *minuteWindow) expire(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(w.stamps) && w.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func (w *minuteWindow) count(now time.Time) int {
	w.expire(now)
	return len(w.stamps)
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(config MetricsConfig) *MetricsService {
	logger := config.Logger
	if logger == nil {
		logger = &core.NopLogger{}
	}
	historySize := config.HistorySize
	if historySize <= 0 {
		historySize = core.HistoryBufferSize
	}

	return &MetricsService{
		maxHistorySize: historySize,
		history:        newRecordRing(historySize),
		saveInterval:   config.SaveInterval,
		storage:        config.Storage,
		logger:         logger,
	}
}

// RecordRequest records one finished generation
func (ms *MetricsService) RecordRequest(success bool, responseTime int64, model, mode string) {
	now := time.Now()
	ms.totals.add(success, responseTime)

	ms.mu.Lock()
	ms.history.push(core.RequestRecord{
		Timestamp:    now,
		Success:      success,
		ResponseTime: responseTime,
		Model:        model,
		Mode:         mode,
	})
	ms.lastMinute.observe(now)
	ms.lastRequest = now
	saveDue := now.Sub(ms.lastSave) >= ms.saveInterval
	if saveDue {
		ms.lastSave = now
	}
	ms.mu.Unlock()

	if saveDue {
		if err := ms.persist(); err != nil {
			ms.logger.Warn("Failed to save stats: %v", err)
		}
	}
}

// GetQPS returns requests per second over the last minute
func (ms *MetricsService) GetQPS() float64 {
	ms.mu.Lock()
	n := ms.lastMinute.count(time.Now())
	ms.mu.Unlock()
	return math.Round(float64(n)/60.0*1000) / 1000
}

// GetRequestStats returns current stats snapshot
func (ms *MetricsService) GetRequestStats() core.RequestStats {
	ms.mu.Lock()
	history := ms.history.ordered()
	last := ms.lastRequest
	ms.mu.Unlock()

	return core.RequestStats{
		TotalRequests:      ms.totals.total.Load(),
		SuccessfulRequests: ms.totals.succeeded.Load(),
		FailedRequests:     ms.totals.failed.Load(),
		TotalResponseTime:  ms.totals.responseTime.Load(),
		LastRequestTime:    last,
		RequestHistory:     history,
	}
}

// StatsSummary is the body of GET /api/stats.
type StatsSummary struct {
	TotalRequests      int64                       `json:"total_requests"`
	SuccessfulRequests int64                       `json:"successful_requests"`
	FailedRequests     int64                       `json:"failed_requests"`
	AvgResponseTime    int64                       `json:"avg_response_time"`
	QPS                float64                     `json:"qps"`
	LastRequestTime    time.Time                   `json:"last_request_time"`
	Periods            map[string]core.PeriodStats `json:"periods"`
	ByMode             map[string]int64            `json:"by_mode"`
	ByModel            map[string]int64            `json:"by_model"`
}

var summaryPeriods = map[string]int{
	"24h": 24,
	"7d":  24 * 7,
	"30d": 24 * 30,
}

// Summary aggregates the current stats for display.
func (ms *MetricsService) Summary() StatsSummary {
	stats := ms.GetRequestStats()

	summary := StatsSummary{
		TotalRequests:      stats.TotalRequests,
		SuccessfulRequests: stats.SuccessfulRequests,
		FailedRequests:     stats.FailedRequests,
		QPS:                ms.GetQPS(),
		LastRequestTime:    stats.LastRequestTime,
		Periods:            make(map[string]core.PeriodStats, len(summaryPeriods)),
		ByMode:             make(map[string]int64),
		ByModel:            make(map[string]int64),
	}
	if stats.TotalRequests > 0 {
		summary.AvgResponseTime = stats.TotalResponseTime / stats.TotalRequests
	}

	hours := make([]int, 0, len(summaryPeriods))
	for _, h := range summaryPeriods {
		hours = append(hours, h)
	}
	byHours := GetPeriodStats(stats.RequestHistory, hours...)
	for label, h := range summaryPeriods {
		summary.Periods[label] = byHours[h]
	}

	for _, record := range stats.RequestHistory {
		summary.ByMode[record.Mode]++
		if record.Model != "" {
			summary.ByModel[record.Model]++
		}
	}
	return summary
}

// GetPeriodStats computes stats for each window of the given hours in one pass
// over history. The result is keyed by hours.
func GetPeriodStats(history []core.RequestRecord, hourPeriods ...int) map[int]core.PeriodStats {
	if len(hourPeriods) == 0 {
		return nil
	}

	type window struct {
		hours        int
		since        time.Time
		requests     int64
		succeeded    int64
		responseTime int64
	}

	now := time.Now()
	windows := make([]window, len(hourPeriods))
	for i, h := range hourPeriods {
		windows[i] = window{hours: h, since: now.Add(-time.Duration(h) * time.Hour)}
	}

	for _, record := range history {
		for i := range windows {
			w := &windows[i]
			if !record.Timestamp.After(w.since) {
				continue
			}
			w.requests++
			w.responseTime += record.ResponseTime
			if record.Success {
				w.succeeded++
			}
		}
	}

	result := make(map[int]core.PeriodStats, len(windows))
	for _, w := range windows {
		ps := core.PeriodStats{
			Requests: w.requests,
			QPS:      float64(w.requests) / (float64(w.hours) * 3600),
		}
		if w.requests > 0 {
			ps.SuccessRate = float64(w.succeeded) / float64(w.requests) * 100
			ps.AvgResponseTime = w.responseTime / w.requests
		}
		result[w.hours] = ps
	}
	return result
}

// LoadStats restores counters and the newest history from storage
func (ms *MetricsService) LoadStats() error {
	if ms.storage == nil {
		return nil
	}
	stats, err := ms.storage.LoadStats()
	if err != nil {
		return err
	}

	ms.totals.restore(stats)

	history := stats.RequestHistory
	if len(history) > ms.maxHistorySize {
		history = history[len(history)-ms.maxHistorySize:]
	}

	ms.mu.Lock()
	ms.history = newRecordRing(ms.maxHistorySize)
	for _, record := range history {
		ms.history.push(record)
	}
	ms.lastRequest = stats.LastRequestTime
	ms.mu.Unlock()

	return nil
}

func (ms *MetricsService) persist() error {
	if ms.storage == nil {
		return nil
	}
	stats := ms.GetRequestStats()
	return ms.storage.SaveStats(&stats)
}

// Close saves final stats. Later calls return the first result.
func (ms *MetricsService) Close() error {
	ms.closeOnce.Do(func() {
		ms.closeErr = ms.persist()
	})
	return ms.closeErr
}
