package instance

import "os"

// GetID returns the process instance identifier used in logs, or "local".
func GetID() string {
	if id := os.Getenv("ONAUC_INSTANCE_ID"); id != "" {
		return id
	}
	return "local"
}
