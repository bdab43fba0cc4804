package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/authzd/internal/app/maintenance"
	"github.com/charlesng35/authzd/internal/monitoring"
)

// Maintenance reports degraded when the last cleanup run failed or is older
// than maxAge. A zero maxAge disables the staleness check.
func Maintenance(cleaner *maintenance.Cleaner, maxAge time.Duration) monitoring.Check {
	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		if cleaner == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "disabled"}
		}
		last, ok := cleaner.LastRun()
		switch {
		case !ok:
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "pending first run"}
		case last.Err != nil:
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: last.Err.Error()}
		case maxAge > 0 && time.Since(last.At) > maxAge:
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: fmt.Sprintf("stale run %s", last.At.UTC().Format(time.RFC3339)),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
