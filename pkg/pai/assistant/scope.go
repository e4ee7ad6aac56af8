// Package assistant – scope.go computes the capability scope: the set of
// spaces and devices one identity may observe or control in one request.
//
// A scope is a pure function of (identity, current directory state). It is
// rebuilt from scratch on every request and thrown away afterwards; nothing
// here is cached, so webhook callbacks survive process restarts.
package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quintaverde/pai/pkg/pai/directory"
)

// ScopedLighting is an accessible lighting group with its common/private tag.
type ScopedLighting struct {
	directory.LightingGroup
	Common bool
}

// ScopedThermostat is an accessible thermostat with its common/private tag.
type ScopedThermostat struct {
	directory.Thermostat
	Common bool
}

// ScopedVehicle is an accessible vehicle with its common/private tag.
type ScopedVehicle struct {
	directory.Vehicle
	Common bool
}

// ScopedCamera is an accessible camera feed with its common/private tag.
type ScopedCamera struct {
	directory.Camera
	Common bool
}

// Scope is the capability snapshot for one request.
type Scope struct {
	Identity Identity

	// AssignedSpaces are the directly assigned space IDs (empty for managers,
	// who skip assignment resolution entirely).
	AssignedSpaces []string

	// AccessibleSpaces is the transitive closure of assigned spaces and all
	// their ancestors.
	AccessibleSpaces map[string]bool

	Lighting    []ScopedLighting
	Thermostats []ScopedThermostat
	Vehicles    []ScopedVehicle
	Cameras     []ScopedCamera
}

// LightingByID finds an accessible lighting group.
func (s *Scope) LightingByID(id string) (*ScopedLighting, bool) {
	for i := range s.Lighting {
		if s.Lighting[i].ID == id {
			return &s.Lighting[i], true
		}
	}
	return nil, false
}

// ThermostatByID finds an accessible thermostat.
func (s *Scope) ThermostatByID(id string) (*ScopedThermostat, bool) {
	for i := range s.Thermostats {
		if s.Thermostats[i].ID == id {
			return &s.Thermostats[i], true
		}
	}
	return nil, false
}

// VehicleByID finds an accessible vehicle.
func (s *Scope) VehicleByID(id string) (*ScopedVehicle, bool) {
	for i := range s.Vehicles {
		if s.Vehicles[i].ID == id {
			return &s.Vehicles[i], true
		}
	}
	return nil, false
}

// HasDevices reports whether any device category is non-empty.
func (s *Scope) HasDevices() bool {
	return len(s.Lighting) > 0 || len(s.Thermostats) > 0 ||
		len(s.Vehicles) > 0 || len(s.Cameras) > 0
}

// BuildScope computes the capability scope for an identity.
//
// Lookup failures degrade: a category that cannot be read becomes empty
// rather than failing the whole scope, so a broken lighting API key never
// blocks thermostat control. The one loud failure is a cyclic space
// hierarchy, which is an invariant violation in the directory itself.
func BuildScope(ctx context.Context, store directory.Store, identity Identity, logger *slog.Logger) (*Scope, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scope")

	scope := &Scope{
		Identity:         identity,
		AccessibleSpaces: make(map[string]bool),
	}
	isManager := identity.Role.IsManager()

	// ── Assigned spaces ──
	// Managers see everything; assignment resolution is skipped for them.
	if !isManager && identity.PersonID != "" {
		assignments, err := store.ActiveAssignments(ctx, identity.PersonID)
		if err != nil {
			logger.Warn("assignment lookup failed, continuing with empty set",
				"person", identity.PersonID, "error", err)
		}
		for _, a := range assignments {
			scope.AssignedSpaces = append(scope.AssignedSpaces, a.SpaceID)
		}
	}

	// ── Space hierarchy ──
	spaces, err := store.Spaces(ctx)
	if err != nil {
		logger.Warn("space lookup failed, continuing with empty hierarchy", "error", err)
	}
	parents := make(map[string]string, len(spaces))
	dwelling := make(map[string]bool, len(spaces))
	for _, sp := range spaces {
		parents[sp.ID] = sp.ParentID
		dwelling[sp.ID] = sp.IsDwelling
	}

	accessible, err := expandAncestors(scope.AssignedSpaces, parents)
	if err != nil {
		// Cyclic parent graph: fail loudly instead of looping forever.
		return nil, err
	}
	scope.AccessibleSpaces = accessible

	// visible applies the common/private rule for one device's space.
	visible := func(spaceID string) bool {
		if isManager {
			return true
		}
		if spaceID == "" || !dwelling[spaceID] {
			return true // common resource
		}
		return accessible[spaceID]
	}
	isCommon := func(spaceID string) bool {
		return spaceID == "" || !dwelling[spaceID]
	}

	// ── Device categories ──
	if groups, err := store.LightingGroups(ctx); err != nil {
		logger.Warn("lighting lookup failed, category empty", "error", err)
	} else {
		for _, g := range groups {
			if visible(g.SpaceID) {
				scope.Lighting = append(scope.Lighting, ScopedLighting{g, isCommon(g.SpaceID)})
			}
		}
	}

	if tstats, err := store.Thermostats(ctx); err != nil {
		logger.Warn("thermostat lookup failed, category empty", "error", err)
	} else {
		for _, t := range tstats {
			// Per-device minimum role can exclude even managers.
			if t.MinRole != "" && identity.Role.Level() < ParseRole(t.MinRole).Level() {
				continue
			}
			if visible(t.SpaceID) {
				scope.Thermostats = append(scope.Thermostats, ScopedThermostat{t, isCommon(t.SpaceID)})
			}
		}
	}

	if vehicles, err := store.Vehicles(ctx); err != nil {
		logger.Warn("vehicle lookup failed, category empty", "error", err)
	} else {
		for _, v := range vehicles {
			if visible(v.SpaceID) {
				scope.Vehicles = append(scope.Vehicles, ScopedVehicle{v, isCommon(v.SpaceID)})
			}
		}
	}

	if cameras, err := store.Cameras(ctx); err != nil {
		logger.Warn("camera lookup failed, category empty", "error", err)
	} else {
		for _, c := range cameras {
			if visible(c.SpaceID) {
				scope.Cameras = append(scope.Cameras, ScopedCamera{c, isCommon(c.SpaceID)})
			}
		}
	}

	logger.Debug("scope built",
		"person", identity.PersonID,
		"role", identity.Role,
		"assigned_spaces", len(scope.AssignedSpaces),
		"accessible_spaces", len(scope.AccessibleSpaces),
		"lighting", len(scope.Lighting),
		"thermostats", len(scope.Thermostats),
		"vehicles", len(scope.Vehicles),
		"cameras", len(scope.Cameras),
	)

	return scope, nil
}

// expandAncestors returns the set of assigned spaces plus every ancestor up
// to the root. The walk is iterative and cycle-checked: a cyclic parent
// graph returns an error.
func expandAncestors(assigned []string, parents map[string]string) (map[string]bool, error) {
	accessible := make(map[string]bool, len(assigned))
	for _, id := range assigned {
		seen := make(map[string]bool)
		for cur := id; cur != ""; cur = parents[cur] {
			if seen[cur] {
				return nil, fmt.Errorf("space hierarchy cycle at %q", cur)
			}
			seen[cur] = true
			accessible[cur] = true
		}
	}
	return accessible, nil
}
