package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateTimestampWithPrefix builds a sortable, human readable id such as
// PU20261015103000A1B2C3D4. The random tail keeps ids created in the same
// second apart.
func GenerateTimestampWithPrefix(prefix string) string {
	tail := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s%s%s", prefix, time.Now().UTC().Format("20060102150405"), tail)
}
