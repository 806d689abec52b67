// Package optimistic gives user-initiated writes the appearance of
// immediate success. A provisional entry is inserted into a cache bucket
// synchronously, the remote write runs in the background, and the entry is
// reconciled on success, failure, or a bounded expiry, whichever fires
// first. Removal is idempotent so the response handler and the expiry
// timer may race harmlessly.
package optimistic

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction marks who authored a provisional entry.
type Direction string

// DirectionOutbound tags entries authored by the current user. Provisional
// entries are always outbound; inbound records only ever arrive from the
// server via refetch.
const DirectionOutbound Direction = "outbound"

// Entry is a locally fabricated record awaiting server confirmation. It is
// distinguishable from authoritative records by the Provisional marker and
// the synthetic ID prefix; it is never promoted in place.
type Entry struct {
	ID          string    `json:"id"`
	Scope       string    `json:"scope"`
	Payload     any       `json:"payload"`
	Direction   Direction `json:"direction"`
	Provisional bool      `json:"provisional"`
	CreatedAt   time.Time `json:"created_at"`
}

// newEntryID builds a synthetic id from the creation timestamp plus a
// random suffix so concurrent writes in the same scope never collide.
func newEntryID(now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("opt-%d-%s", now.UnixNano(), suffix)
}
