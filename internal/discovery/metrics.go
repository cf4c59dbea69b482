package discovery

// MetricsSnapshot is the JSON body served by the codomyrmex://discovery/metrics
// resource.
type MetricsSnapshot struct {
	TotalTools     int            `json:"total_tools"`
	ScanDurationMS int64          `json:"scan_duration_ms"`
	FailedModules  []FailedModule `json:"failed_modules"`
	ModulesScanned int            `json:"modules_scanned"`
	CacheHits      uint64         `json:"cache_hits"`
	LastScanTime   string         `json:"last_scan_time"`
}

// Metrics reads the current cached report (triggering a scan if cold) and
// summarizes it for the metrics resource.
func (e *Engine) Metrics() MetricsSnapshot {
	report := e.GetReport()
	return MetricsSnapshot{
		TotalTools:     len(report.Tools),
		ScanDurationMS: report.ScanDurationMS,
		FailedModules:  report.FailedModules,
		ModulesScanned: report.ModulesScanned,
		CacheHits:      e.CacheHits(),
		LastScanTime:   report.ScannedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
