// Package assistant – tools.go defines the closed tool catalog.
//
// Every tool the model can call is enumerated here as a ToolKind. The
// executor switches exhaustively over the kind, so adding a tool means
// adding a case there too. Declarations are static: the per-caller
// filtering happens in OfferedTools, never inside a schema.
package assistant

import "encoding/json"

// ToolKind identifies one tool in the catalog.
type ToolKind int

const (
	ToolUnknown ToolKind = iota
	ToolControlLights
	ToolControlThermostat
	ToolControlVehicle
	ToolGetDeviceStatus
	ToolSearchSpaces
	ToolAnnounce
	ToolSendLink
	ToolBuildFeature
)

// toolNames maps each kind to its wire name.
var toolNames = map[ToolKind]string{
	ToolControlLights:     "control_lights",
	ToolControlThermostat: "control_thermostat",
	ToolControlVehicle:    "control_vehicle",
	ToolGetDeviceStatus:   "get_device_status",
	ToolSearchSpaces:      "search_spaces",
	ToolAnnounce:          "announce",
	ToolSendLink:          "send_link",
	ToolBuildFeature:      "build_feature",
}

// Name returns the wire name of the tool.
func (k ToolKind) Name() string {
	return toolNames[k]
}

// ParseToolKind maps a wire name back to a ToolKind. Unrecognized names
// return ToolUnknown.
func ParseToolKind(name string) ToolKind {
	for k, n := range toolNames {
		if n == name {
			return k
		}
	}
	return ToolUnknown
}

// declare builds an OpenAI-compatible tool definition from a kind, a
// description, and a raw JSON schema for the parameters.
func declare(kind ToolKind, description, schema string) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDef{
			Name:        kind.Name(),
			Description: description,
			Parameters:  json.RawMessage(schema),
		},
	}
}

// toolDeclarations holds the static declaration for every catalog tool.
var toolDeclarations = map[ToolKind]ToolDefinition{
	ToolControlLights: declare(ToolControlLights,
		"Control a lighting group: turn it on or off, set brightness, or set color. "+
			"Use the group id from your device list.",
		`{
			"type": "object",
			"properties": {
				"group_id": {"type": "string", "description": "Lighting group id from the device list"},
				"power": {"type": "string", "enum": ["on", "off"], "description": "Turn the group on or off"},
				"brightness": {"type": "integer", "minimum": 1, "maximum": 100, "description": "Brightness percent"},
				"color": {"type": "string", "description": "Color as a hex string like #ff8800 or a common color name"}
			},
			"required": ["group_id"]
		}`),

	ToolControlThermostat: declare(ToolControlThermostat,
		"Set a thermostat's mode and/or target temperature. "+
			"Use the thermostat id from your device list.",
		`{
			"type": "object",
			"properties": {
				"thermostat_id": {"type": "string", "description": "Thermostat id from the device list"},
				"mode": {"type": "string", "enum": ["heat", "cool", "auto", "off"], "description": "Operating mode"},
				"target_temp": {"type": "number", "description": "Target temperature in degrees Fahrenheit"}
			},
			"required": ["thermostat_id"]
		}`),

	ToolControlVehicle: declare(ToolControlVehicle,
		"Send a command to a vehicle. Use the vehicle id from your device list.",
		`{
			"type": "object",
			"properties": {
				"vehicle_id": {"type": "string", "description": "Vehicle id from the device list"},
				"command": {
					"type": "string",
					"enum": ["lock", "unlock", "start_climate", "stop_climate", "open_frunk", "open_trunk", "honk", "flash_lights", "open_charge_port"],
					"description": "Command to send"
				}
			},
			"required": ["vehicle_id", "command"]
		}`),

	ToolGetDeviceStatus: declare(ToolGetDeviceStatus,
		"Read the current state of a device: a lighting group, thermostat, or vehicle.",
		`{
			"type": "object",
			"properties": {
				"device_type": {"type": "string", "enum": ["lighting", "thermostat", "vehicle"], "description": "Category of the device"},
				"device_id": {"type": "string", "description": "Device id from the device list"}
			},
			"required": ["device_type", "device_id"]
		}`),

	ToolSearchSpaces: declare(ToolSearchSpaces,
		"Search available spaces and units by name. Use this to answer questions "+
			"about availability or to look up a space the caller mentions.",
		`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search text matched against space names"}
			},
			"required": ["query"]
		}`),

	ToolAnnounce: declare(ToolAnnounce,
		"Speak an announcement on a room's audio system.",
		`{
			"type": "object",
			"properties": {
				"room": {"type": "string", "description": "Room name of the audio endpoint"},
				"text": {"type": "string", "description": "Text to speak"}
			},
			"required": ["room", "text"]
		}`),

	ToolSendLink: declare(ToolSendLink,
		"Text a link to the caller's phone via SMS. Only works when the caller's "+
			"phone number is known.",
		`{
			"type": "object",
			"properties": {
				"url": {"type": "string", "description": "Link to send"},
				"note": {"type": "string", "description": "Optional short message to include with the link"}
			},
			"required": ["url"]
		}`),

	ToolBuildFeature: declare(ToolBuildFeature,
		"File a feature request on behalf of the caller when they ask for a "+
			"capability the assistant does not have.",
		`{
			"type": "object",
			"properties": {
				"description": {"type": "string", "description": "What the caller asked for, in their words"}
			},
			"required": ["description"]
		}`),
}

// Declaration returns the static declaration for a tool kind.
func Declaration(kind ToolKind) ToolDefinition {
	return toolDeclarations[kind]
}

// OfferedTools returns the declarations offered for one scope. Offering is
// derived from the scope alone: a tool whose category is empty for this
// caller is simply absent, which is itself capability information the model
// acts on.
func OfferedTools(scope *Scope) []ToolDefinition {
	var out []ToolDefinition

	// search_spaces is offered to everyone, including unknown voice callers.
	out = append(out, toolDeclarations[ToolSearchSpaces])

	if len(scope.Lighting) > 0 {
		out = append(out, toolDeclarations[ToolControlLights])
	}
	if len(scope.Thermostats) > 0 {
		out = append(out, toolDeclarations[ToolControlThermostat])
	}
	if len(scope.Vehicles) > 0 {
		out = append(out, toolDeclarations[ToolControlVehicle])
	}
	if scope.HasDevices() {
		out = append(out, toolDeclarations[ToolGetDeviceStatus])
	}
	if scope.Identity.Role.Level() >= RoleResident.Level() {
		out = append(out, toolDeclarations[ToolAnnounce])
	}
	if scope.Identity.Phone != "" {
		out = append(out, toolDeclarations[ToolSendLink])
	}
	if scope.Identity.PersonID != "" {
		out = append(out, toolDeclarations[ToolBuildFeature])
	}

	return out
}

// MinimalTools is the toolset for an unrecognized caller: search only.
func MinimalTools() []ToolDefinition {
	return []ToolDefinition{toolDeclarations[ToolSearchSpaces]}
}
