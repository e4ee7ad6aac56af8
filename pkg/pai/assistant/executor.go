// Package assistant – executor.go validates and runs tool calls.
//
// The executor is the enforcement point: the model's tool calls are
// suggestions, and every one is re-checked against the caller's scope here
// before any downstream request is made. A denied call produces a result
// string the model can relay; it never reaches a device API.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quintaverde/pai/pkg/pai/devices"
	"github.com/quintaverde/pai/pkg/pai/directory"
)

// ToolResult is the outcome of one tool call, fed back to the model and
// surfaced in the turn's action log.
type ToolResult struct {
	ToolCallID string
	Name       string
	Target     string
	Content    string
}

// ToolExecutor runs validated tool calls against the device APIs and the
// directory.
type ToolExecutor struct {
	clients *devices.Clients
	store   directory.Store
	settle  time.Duration
	logger  *slog.Logger

	// sleep is swapped in tests to avoid the real settle delay.
	sleep func(time.Duration)
}

// NewToolExecutor creates a tool executor.
func NewToolExecutor(clients *devices.Clients, store directory.Store, cfg *Config, logger *slog.Logger) *ToolExecutor {
	return &ToolExecutor{
		clients: clients,
		store:   store,
		settle:  cfg.Devices.SettleDelay(),
		logger:  logger.With("component", "executor"),
		sleep:   time.Sleep,
	}
}

// ExecuteBatch runs one round of tool calls. Calls within a round are
// independent, so they run concurrently; results come back in call order.
func (e *ToolExecutor) ExecuteBatch(ctx context.Context, scope *Scope, channel string, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			results[i] = e.executeOne(ctx, scope, channel, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

// executeOne validates and runs a single tool call.
func (e *ToolExecutor) executeOne(ctx context.Context, scope *Scope, channel string, call ToolCall) ToolResult {
	result := ToolResult{
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}

	kind := ParseToolKind(call.Function.Name)
	if kind == ToolUnknown {
		result.Content = fmt.Sprintf("Unknown tool %q.", call.Function.Name)
		return result
	}

	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			result.Content = fmt.Sprintf("Invalid arguments for %s: %v", kind.Name(), err)
			return result
		}
	}

	start := time.Now()
	var content, target string
	switch kind {
	case ToolControlLights:
		target, content = e.controlLights(ctx, scope, args)
	case ToolControlThermostat:
		target, content = e.controlThermostat(ctx, scope, args)
	case ToolControlVehicle:
		target, content = e.controlVehicle(ctx, scope, args)
	case ToolGetDeviceStatus:
		target, content = e.deviceStatus(ctx, scope, args)
	case ToolSearchSpaces:
		target, content = e.searchSpaces(ctx, args)
	case ToolAnnounce:
		target, content = e.announce(ctx, scope, args)
	case ToolSendLink:
		target, content = e.sendLink(ctx, scope, args)
	case ToolBuildFeature:
		target, content = e.buildFeature(ctx, scope, args)
	}
	result.Target = target
	result.Content = content

	e.logger.Info("tool executed",
		"tool", kind.Name(),
		"target", target,
		"person", scope.Identity.PersonID,
		"channel", channel,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	// Audit is best-effort: a lost row never fails the call.
	if err := e.store.RecordAction(ctx, directory.ActionRecord{
		ID:        uuid.NewString(),
		PersonID:  scope.Identity.PersonID,
		Channel:   channel,
		Tool:      kind.Name(),
		Target:    target,
		Result:    truncate(content, 500),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		e.logger.Warn("action audit failed", "tool", kind.Name(), "error", err)
	}

	return result
}

// ---------- Tool handlers ----------

func (e *ToolExecutor) controlLights(ctx context.Context, scope *Scope, args map[string]any) (string, string) {
	groupID, _ := args["group_id"].(string)
	group, ok := scope.LightingByID(groupID)
	if !ok {
		return groupID, fmt.Sprintf("Permission denied: lighting group %q is not available to you.", groupID)
	}

	power, _ := args["power"].(string)
	colorStr, _ := args["color"].(string)
	brightness, hasBrightness := argInt(args, "brightness")

	var did []string

	if power == "off" {
		if err := e.clients.Lighting.SetPower(ctx, group.VendorID, group.Model, false); err != nil {
			return group.Name, fmt.Sprintf("Failed to turn off %s: %v", group.Name, err)
		}
		return group.Name, fmt.Sprintf("Turned off %s.", group.Name)
	}

	// Color or brightness on a powered-off group: power on first and let the
	// firmware settle, otherwise the change is silently dropped.
	needsPower := power == "on"
	if !needsPower && (colorStr != "" || hasBrightness) {
		if state, err := e.clients.Lighting.State(ctx, group.VendorID, group.Model); err == nil && !state.PowerOn {
			needsPower = true
		}
	}
	if needsPower {
		if err := e.clients.Lighting.SetPower(ctx, group.VendorID, group.Model, true); err != nil {
			return group.Name, fmt.Sprintf("Failed to turn on %s: %v", group.Name, err)
		}
		did = append(did, "turned on")
		if colorStr != "" || hasBrightness {
			e.sleep(e.settle)
		}
	}

	if hasBrightness {
		if err := e.clients.Lighting.SetBrightness(ctx, group.VendorID, group.Model, brightness); err != nil {
			return group.Name, fmt.Sprintf("Failed to set brightness on %s: %v", group.Name, err)
		}
		did = append(did, fmt.Sprintf("set brightness to %d%%", brightness))
	}

	if colorStr != "" {
		rgb, err := parseColor(colorStr)
		if err != nil {
			return group.Name, fmt.Sprintf("Unrecognized color %q.", colorStr)
		}
		if err := e.clients.Lighting.SetColor(ctx, group.VendorID, group.Model, rgb); err != nil {
			return group.Name, fmt.Sprintf("Failed to set color on %s: %v", group.Name, err)
		}
		did = append(did, "set color to "+colorStr)
	}

	if len(did) == 0 {
		return group.Name, fmt.Sprintf("No change requested for %s.", group.Name)
	}
	return group.Name, fmt.Sprintf("%s: %s.", group.Name, strings.Join(did, ", "))
}

func (e *ToolExecutor) controlThermostat(ctx context.Context, scope *Scope, args map[string]any) (string, string) {
	tstatID, _ := args["thermostat_id"].(string)
	tstat, ok := scope.ThermostatByID(tstatID)
	if !ok {
		return tstatID, fmt.Sprintf("Permission denied: thermostat %q is not available to you.", tstatID)
	}

	mode, _ := args["mode"].(string)
	var target *float64
	if v, ok := args["target_temp"].(float64); ok {
		target = &v
	}

	if mode == "" && target == nil {
		return tstat.Name, fmt.Sprintf("No change requested for %s.", tstat.Name)
	}

	if err := e.clients.Thermostat.Set(ctx, tstat.VendorID, mode, target); err != nil {
		return tstat.Name, fmt.Sprintf("Failed to adjust %s: %v", tstat.Name, err)
	}

	var did []string
	if mode != "" {
		did = append(did, "mode "+mode)
	}
	if target != nil {
		did = append(did, fmt.Sprintf("target %.0f°F", *target))
	}
	return tstat.Name, fmt.Sprintf("%s set: %s.", tstat.Name, strings.Join(did, ", "))
}

func (e *ToolExecutor) controlVehicle(ctx context.Context, scope *Scope, args map[string]any) (string, string) {
	vehicleID, _ := args["vehicle_id"].(string)
	vehicle, ok := scope.VehicleByID(vehicleID)
	if !ok {
		return vehicleID, fmt.Sprintf("Permission denied: vehicle %q is not available to you.", vehicleID)
	}

	command, _ := args["command"].(string)
	if !devices.ValidCommand(command) {
		return vehicle.Name, fmt.Sprintf("Unknown vehicle command %q.", command)
	}

	if err := e.clients.Vehicle.Command(ctx, vehicle.VendorID, command); err != nil {
		return vehicle.Name, fmt.Sprintf("Failed to %s %s: %v", command, vehicle.Name, err)
	}
	return vehicle.Name, fmt.Sprintf("Sent %s to %s.", command, vehicle.Name)
}

func (e *ToolExecutor) deviceStatus(ctx context.Context, scope *Scope, args map[string]any) (string, string) {
	deviceType, _ := args["device_type"].(string)
	deviceID, _ := args["device_id"].(string)

	switch deviceType {
	case "lighting":
		group, ok := scope.LightingByID(deviceID)
		if !ok {
			return deviceID, fmt.Sprintf("Permission denied: lighting group %q is not available to you.", deviceID)
		}
		state, err := e.clients.Lighting.State(ctx, group.VendorID, group.Model)
		if err != nil {
			return group.Name, fmt.Sprintf("Failed to read %s: %v", group.Name, err)
		}
		power := "off"
		if state.PowerOn {
			power = "on"
		}
		return group.Name, fmt.Sprintf("%s is %s at %d%% brightness.", group.Name, power, state.Brightness)

	case "thermostat":
		tstat, ok := scope.ThermostatByID(deviceID)
		if !ok {
			return deviceID, fmt.Sprintf("Permission denied: thermostat %q is not available to you.", deviceID)
		}
		status, err := e.clients.Thermostat.Status(ctx, tstat.VendorID)
		if err != nil {
			return tstat.Name, fmt.Sprintf("Failed to read %s: %v", tstat.Name, err)
		}
		return tstat.Name, fmt.Sprintf("%s: %s mode, currently %.0f°F, target %.0f°F.",
			tstat.Name, status.Mode, status.CurrentTemp, status.TargetTemp)

	case "vehicle":
		vehicle, ok := scope.VehicleByID(deviceID)
		if !ok {
			return deviceID, fmt.Sprintf("Permission denied: vehicle %q is not available to you.", deviceID)
		}
		status, err := e.clients.Vehicle.Status(ctx, vehicle.VendorID)
		if err != nil {
			return vehicle.Name, fmt.Sprintf("Failed to read %s: %v", vehicle.Name, err)
		}
		locked := "unlocked"
		if status.Locked {
			locked = "locked"
		}
		return vehicle.Name, fmt.Sprintf("%s is %s, battery %d%%, range %.0f miles.",
			vehicle.Name, locked, status.BatteryLevel, status.Range)
	}

	return deviceID, fmt.Sprintf("Unknown device type %q.", deviceType)
}

func (e *ToolExecutor) searchSpaces(ctx context.Context, args map[string]any) (string, string) {
	query, _ := args["query"].(string)
	spaces, err := e.store.SearchSpaces(ctx, query)
	if err != nil {
		return query, fmt.Sprintf("Space search failed: %v", err)
	}
	if len(spaces) == 0 {
		return query, fmt.Sprintf("No spaces match %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d spaces match %q:\n", len(spaces), query)
	for _, sp := range spaces {
		kind := "common area"
		if sp.IsDwelling {
			kind = "dwelling"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", sp.Name, kind)
	}
	return query, b.String()
}

func (e *ToolExecutor) announce(ctx context.Context, scope *Scope, args map[string]any) (string, string) {
	if scope.Identity.Role.Level() < RoleResident.Level() {
		return "", "Permission denied: announcements require a resident account."
	}

	room, _ := args["room"].(string)
	text, _ := args["text"].(string)
	if room == "" || text == "" {
		return room, "Both room and text are required for an announcement."
	}

	if err := e.clients.Audio.Announce(ctx, room, text); err != nil {
		return room, fmt.Sprintf("Failed to announce in %s: %v", room, err)
	}
	return room, fmt.Sprintf("Announced in %s.", room)
}

func (e *ToolExecutor) sendLink(ctx context.Context, scope *Scope, args map[string]any) (string, string) {
	if scope.Identity.Phone == "" {
		return "", "Permission denied: no phone number is known for this caller, so a link cannot be sent."
	}

	url, _ := args["url"].(string)
	if url == "" {
		return "", "A url is required to send a link."
	}
	body := url
	if note, _ := args["note"].(string); note != "" {
		body = note + " " + url
	}

	if err := e.clients.SMS.Send(ctx, scope.Identity.Phone, body); err != nil {
		return url, fmt.Sprintf("Failed to send the link: %v", err)
	}
	return url, "Link sent by text message."
}

func (e *ToolExecutor) buildFeature(ctx context.Context, scope *Scope, args map[string]any) (string, string) {
	if scope.Identity.PersonID == "" {
		return "", "Permission denied: feature requests require an identified caller."
	}

	description, _ := args["description"].(string)
	if description == "" {
		return "", "A description is required to file a feature request."
	}

	fr := directory.FeatureRequest{
		ID:        uuid.NewString(),
		PersonID:  scope.Identity.PersonID,
		Title:     truncate(description, 80),
		Details:   description,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.CreateFeatureRequest(ctx, fr); err != nil {
		return fr.Title, fmt.Sprintf("Failed to file the feature request: %v", err)
	}
	return fr.Title, "Feature request filed. The property team will review it."
}

// ---------- Helpers ----------

// argInt reads an integer argument (JSON numbers decode as float64).
func argInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// namedColors covers the colors callers actually ask for by name.
var namedColors = map[string]int{
	"red":    0xff0000,
	"green":  0x00ff00,
	"blue":   0x0000ff,
	"white":  0xffffff,
	"warm":   0xffd9a0,
	"yellow": 0xffff00,
	"orange": 0xff8800,
	"purple": 0x800080,
	"pink":   0xffc0cb,
	"cyan":   0x00ffff,
}

// parseColor accepts "#rrggbb", "rrggbb", or a known color name and returns
// the packed 24-bit RGB value.
func parseColor(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if rgb, ok := namedColors[s]; ok {
		return rgb, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 6 {
		if v, err := strconv.ParseInt(hex, 16, 32); err == nil {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("unrecognized color %q", s)
}
