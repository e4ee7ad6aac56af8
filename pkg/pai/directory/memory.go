package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used by the "memory" backend and by
// tests. Seed it through the exported fields before first use; reads take
// the lock, so concurrent request handling is safe.
type MemoryStore struct {
	mu sync.RWMutex

	People         []Person
	Tokens         map[string]string // token → person ID
	SpaceList      []Space
	Assignments    []Assignment
	Lighting       []LightingGroup
	ThermostatList []Thermostat
	VehicleList    []Vehicle
	CameraList     []Camera

	FeatureRequests []FeatureRequest
	Actions         []ActionRecord

	// Fail, when non-nil, is returned by the named read methods. Used by
	// tests to exercise per-category degradation.
	Fail map[string]error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Tokens: make(map[string]string)}
}

func (m *MemoryStore) failFor(method string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail[method]
}

func (m *MemoryStore) personByID(id string) *Person {
	for i := range m.People {
		if m.People[i].ID == id {
			p := m.People[i]
			return &p
		}
	}
	return nil
}

func (m *MemoryStore) PersonByToken(_ context.Context, token string) (*Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("PersonByToken"); err != nil {
		return nil, err
	}
	id, ok := m.Tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	if p := m.personByID(id); p != nil {
		return p, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) PersonByPhoneDigits(_ context.Context, last10 string) (*Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("PersonByPhoneDigits"); err != nil {
		return nil, err
	}
	if last10 == "" {
		return nil, ErrNotFound
	}
	for i := range m.People {
		if NormalizePhoneDigits(m.People[i].Phone) == last10 {
			p := m.People[i]
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ActiveAssignments(_ context.Context, personID string) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("ActiveAssignments"); err != nil {
		return nil, err
	}
	var out []Assignment
	for _, a := range m.Assignments {
		if a.PersonID != personID {
			continue
		}
		switch a.Status {
		case StatusActive, StatusPendingContract, StatusContractSent:
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) Spaces(_ context.Context) ([]Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("Spaces"); err != nil {
		return nil, err
	}
	var out []Space
	for _, sp := range m.SpaceList {
		if !sp.Archived {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (m *MemoryStore) SearchSpaces(_ context.Context, query string) ([]Space, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("SearchSpaces"); err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []Space
	for _, sp := range m.SpaceList {
		if sp.Archived {
			continue
		}
		if strings.Contains(strings.ToLower(sp.Name), needle) {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) LightingGroups(_ context.Context) ([]LightingGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("LightingGroups"); err != nil {
		return nil, err
	}
	return append([]LightingGroup(nil), m.Lighting...), nil
}

func (m *MemoryStore) Thermostats(_ context.Context) ([]Thermostat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("Thermostats"); err != nil {
		return nil, err
	}
	return append([]Thermostat(nil), m.ThermostatList...), nil
}

func (m *MemoryStore) Vehicles(_ context.Context) ([]Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("Vehicles"); err != nil {
		return nil, err
	}
	return append([]Vehicle(nil), m.VehicleList...), nil
}

func (m *MemoryStore) Cameras(_ context.Context) ([]Camera, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failFor("Cameras"); err != nil {
		return nil, err
	}
	return append([]Camera(nil), m.CameraList...), nil
}

func (m *MemoryStore) CreateFeatureRequest(_ context.Context, fr FeatureRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeatureRequests = append(m.FeatureRequests, fr)
	return nil
}

func (m *MemoryStore) RecordAction(_ context.Context, rec ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Actions = append(m.Actions, rec)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
