// Package directory is the client for the capability store: the relational
// store of people, spaces, occupancy assignments, and registered devices that
// every scope is computed from. Backends: SQLite (default, zero config),
// PostgreSQL, and an in-memory store for tests.
//
// The directory holds no derived state. Scopes, prompts, and offered toolsets
// are always recomputed from it per request.
package directory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("directory: not found")

// Assignment statuses that grant space access. A person holds a space while
// the occupancy is active or the contract is still in flight.
const (
	StatusActive          = "active"
	StatusPendingContract = "pending_contract"
	StatusContractSent    = "contract_sent"
)

// Person is a person record, optionally reachable by phone.
type Person struct {
	ID          string
	DisplayName string
	Phone       string
	ContactType string // "tenant", "staff", "owner", ...
	Role        string // platform role name, e.g. "resident"
}

// Space is one node in the property hierarchy (property → building → unit → room).
type Space struct {
	ID         string
	Name       string
	ParentID   string // empty at the root
	IsDwelling bool   // private dwelling vs common area
	Archived   bool
}

// Assignment links a person to a space with an occupancy status.
type Assignment struct {
	ID       string
	PersonID string
	SpaceID  string
	Status   string
}

// LightingGroup is a controllable group of lights.
type LightingGroup struct {
	ID       string
	Name     string
	SpaceID  string // empty = unassigned (common by definition)
	VendorID string // downstream API device identifier
	Model    string
}

// Thermostat is a controllable thermostat. MinRole, when set, overrides the
// common/private rule and can exclude even managers.
type Thermostat struct {
	ID       string
	Name     string
	SpaceID  string
	VendorID string
	MinRole  string
}

// Vehicle is a controllable vehicle.
type Vehicle struct {
	ID       string
	Name     string
	SpaceID  string
	VendorID string
}

// Camera is a viewable camera feed.
type Camera struct {
	ID       string
	Name     string
	SpaceID  string
	VendorID string
}

// FeatureRequest is a build_feature tool submission.
type FeatureRequest struct {
	ID        string
	PersonID  string
	Title     string
	Details   string
	CreatedAt time.Time
}

// ActionRecord is one audit row for an executed tool call.
type ActionRecord struct {
	ID        string
	PersonID  string
	Channel   string // "chat" or "voice"
	Tool      string
	Target    string
	Result    string
	CreatedAt time.Time
}

// Store is the read/write surface the assistant core uses. Reads are all
// point-in-time; the store never hands out cached or derived data.
type Store interface {
	// PersonByToken resolves a bearer credential to a person. Returns
	// ErrNotFound for unknown or expired tokens.
	PersonByToken(ctx context.Context, token string) (*Person, error)

	// PersonByPhoneDigits matches the last-10-digit suffix of a normalized
	// phone number against known contacts. Returns ErrNotFound on no match.
	PersonByPhoneDigits(ctx context.Context, last10 string) (*Person, error)

	// ActiveAssignments returns the person's assignments whose status grants
	// space access (active, pending_contract, contract_sent).
	ActiveAssignments(ctx context.Context, personID string) ([]Assignment, error)

	// Spaces returns all non-archived spaces.
	Spaces(ctx context.Context) ([]Space, error)

	// SearchSpaces returns non-archived spaces whose name matches the query.
	SearchSpaces(ctx context.Context, query string) ([]Space, error)

	LightingGroups(ctx context.Context) ([]LightingGroup, error)
	Thermostats(ctx context.Context) ([]Thermostat, error)
	Vehicles(ctx context.Context) ([]Vehicle, error)
	Cameras(ctx context.Context) ([]Camera, error)

	// CreateFeatureRequest stores a build_feature submission.
	CreateFeatureRequest(ctx context.Context, fr FeatureRequest) error

	// RecordAction appends one audit row. Callers treat failures as
	// best-effort: a lost audit row never fails the tool call.
	RecordAction(ctx context.Context, rec ActionRecord) error

	Close() error
}

// NormalizePhoneDigits strips everything but digits from a phone number and
// returns the last 10 digits (or all of them when shorter). Both sides of a
// phone match go through this, so resolution is order-independent.
func NormalizePhoneDigits(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return string(digits)
}
