package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXXXX where the suffix is eight
// upper-case hex characters.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + now.UTC().Format("20060102") + "-" + suffix
}
