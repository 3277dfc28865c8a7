package integration

import (
	"fmt"
	"time"
)

// TestMemberEmail generates a unique test email using timestamp
func TestMemberEmail(suffix string) string {
	return fmt.Sprintf("test-%d-%s@example.com", time.Now().UnixNano(), suffix)
}

// TestPassword is the shared plaintext password for seeded accounts
const TestPassword = "MotDePasse123!"

// CurrentMois returns the current month key in "YYYY-MM" format
func CurrentMois() string {
	return time.Now().Format("2006-01")
}
