package cache

import (
	"fmt"
	"time"
)

// AnalysisLockKey guards analysis runs so only one writes cluster labels at a time.
const AnalysisLockKey = "lock:analysis"

// LatestReportKey holds the JSON of the most recent analysis report.
const LatestReportKey = "analysis:latest"

// LatestReportTTL is how long the most recent report stays retrievable.
const LatestReportTTL = 24 * time.Hour

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
