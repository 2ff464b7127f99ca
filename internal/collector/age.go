package collector

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// formatAge renders the time elapsed since timestamp using only its largest
// non-zero unit: "3d", "5h" or "12m". Timestamps in the future count as
// "0m"; empty or unparseable timestamps yield "".
func formatAge(timestamp string, now time.Time) string {
	if timestamp == "" {
		return ""
	}
	created, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return ""
	}
	// time.Parse accepts fractional seconds the layout does not name.
	if created.Format(timestampLayout) != timestamp {
		return ""
	}

	elapsed := now.UTC().Sub(created)
	if elapsed < 0 {
		elapsed = 0
	}

	days := int64(elapsed / (24 * time.Hour))
	hours := int64(elapsed%(24*time.Hour)) / int64(time.Hour)
	minutes := int64(elapsed%time.Hour) / int64(time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
