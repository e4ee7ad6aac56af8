// Package assistant – prompt.go renders a scope into the system prompt.
//
// The compiled prompt and the offered tool declarations are the only two
// channels of capability information the model ever receives. Only the
// already-filtered scope is stringified here, so a device outside the
// caller's scope can never leak into the prompt. The model is still not
// trusted to self-restrict: the executor re-validates every call.
package assistant

import (
	"fmt"
	"strings"
)

// CompilePrompt deterministically renders the system prompt for a scope.
// Section order is fixed: preamble, lighting, thermostats, vehicles,
// cameras, property info. Empty categories render nothing.
func CompilePrompt(scope *Scope, cfg *Config) string {
	var b strings.Builder

	// ── Preamble ──
	name := cfg.Name
	if name == "" {
		name = "PAI"
	}
	fmt.Fprintf(&b, "You are %s, the assistant for this property.", name)
	if scope.Identity.DisplayName != "" {
		fmt.Fprintf(&b, " You are speaking with %s (%s).", scope.Identity.DisplayName, scope.Identity.Role)
	} else {
		fmt.Fprintf(&b, " The caller has not been identified.")
	}
	b.WriteString(" Use the provided tools to act on their requests." +
		" Always confirm what you did in one short sentence." +
		" If you cannot do something, say so plainly.\n")

	// ── Device categories ──
	if len(scope.Lighting) > 0 {
		b.WriteString("\nLighting groups you can control (turn on/off, set brightness 1-100, set color):\n")
		for _, g := range scope.Lighting {
			fmt.Fprintf(&b, "- %s (id: %s)%s\n", g.Name, g.ID, commonTag(g.Common))
		}
	}

	if len(scope.Thermostats) > 0 {
		b.WriteString("\nThermostats you can control (set mode heat/cool/auto/off, set target temperature in °F):\n")
		for _, t := range scope.Thermostats {
			fmt.Fprintf(&b, "- %s (id: %s)%s\n", t.Name, t.ID, commonTag(t.Common))
		}
	}

	if len(scope.Vehicles) > 0 {
		b.WriteString("\nVehicles you can control (lock, unlock, start_climate, stop_climate, honk, flash_lights, open_trunk, open_frunk, open_charge_port):\n")
		for _, v := range scope.Vehicles {
			fmt.Fprintf(&b, "- %s (id: %s)%s\n", v.Name, v.ID, commonTag(v.Common))
		}
	}

	if len(scope.Cameras) > 0 {
		b.WriteString("\nCamera feeds you can check:\n")
		for _, c := range scope.Cameras {
			fmt.Fprintf(&b, "- %s (id: %s)%s\n", c.Name, c.ID, commonTag(c.Common))
		}
	}

	// ── Property info ──
	if cfg.PropertyInfo != "" {
		b.WriteString("\nProperty information:\n")
		b.WriteString(cfg.PropertyInfo)
		b.WriteString("\n")
	}

	return b.String()
}

func commonTag(common bool) string {
	if common {
		return " [common area]"
	}
	return ""
}
