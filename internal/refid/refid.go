// Package refid issues processor-facing reference ids. Ids are derived from
// random UUIDs rather than wall-clock time so rapid retries within the same
// second cannot collide.
package refid

import (
	"strings"

	"github.com/google/uuid"
)

// The transaction API caps refId at 20 characters.
const maxLen = 20

func New() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ref" + id[:maxLen-len("ref")]
}
