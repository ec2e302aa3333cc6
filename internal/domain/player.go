package domain

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// PlayerIdentity is one row of the uuid -> display name registry. Name is the
// most recently observed display name; UpdatedAt is refreshed on every
// resolved reference to the id.
type PlayerIdentity struct {
	ID        uuid.UUID
	Name      string
	UpdatedAt time.Time
}
