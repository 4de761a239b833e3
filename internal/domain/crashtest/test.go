// Package crashtest defines the road-accident test entity and its
// data-access contracts.
package crashtest

import (
	"time"

	"github.com/google/uuid"
)

// Test is a tenant-owned road-accident test record. A zero ID marks a
// record that has not been persisted yet; storage assigns the ID and
// CreatedAt on first save.
type Test struct {
	ID           uuid.UUID
	TenantID     uuid.UUID `validate:"required"`
	Name         string    `validate:"required"`
	Road         string
	AccidentType string
	NrOfVehicles int
	Description  string
	CreatedAt    time.Time
}

// Equal reports structural equality over identity, owning tenant and all
// attributes. CreatedAt is storage-assigned and excluded, so a saved record
// compares equal to the value it was built from.
func (t *Test) Equal(other *Test) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.ID == other.ID &&
		t.TenantID == other.TenantID &&
		t.Name == other.Name &&
		t.Road == other.Road &&
		t.AccidentType == other.AccidentType &&
		t.NrOfVehicles == other.NrOfVehicles &&
		t.Description == other.Description
}

// Info returns the list/search projection of the test.
func (t *Test) Info() TestInfo {
	return TestInfo{
		ID:           t.ID,
		TenantID:     t.TenantID,
		Name:         t.Name,
		Road:         t.Road,
		AccidentType: t.AccidentType,
		NrOfVehicles: t.NrOfVehicles,
		Description:  t.Description,
		CreatedAt:    t.CreatedAt,
	}
}

// TestInfo is the lightweight projection returned by list and search
// operations. It carries the same attributes as Test and honors the same
// equality contract, so pagination and bulk-removal logic behaves
// deterministically over either type.
type TestInfo struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	Road         string
	AccidentType string
	NrOfVehicles int
	Description  string
	CreatedAt    time.Time
}

// Equal reports structural equality over identity, owning tenant and all
// attributes, mirroring Test.Equal.
func (i TestInfo) Equal(other TestInfo) bool {
	return i.ID == other.ID &&
		i.TenantID == other.TenantID &&
		i.Name == other.Name &&
		i.Road == other.Road &&
		i.AccidentType == other.AccidentType &&
		i.NrOfVehicles == other.NrOfVehicles &&
		i.Description == other.Description
}
