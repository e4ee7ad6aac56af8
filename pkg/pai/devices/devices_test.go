package devices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLightingControl(t *testing.T) {
	var got lightingControlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/device/control" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": "success"})
	}))
	defer srv.Close()

	c := NewLightingClient(EndpointConfig{BaseURL: srv.URL, APIKey: "k"})
	if err := c.SetPower(context.Background(), "dev-1", "H6159", true); err != nil {
		t.Fatalf("SetPower: %v", err)
	}

	if got.Payload.Device != "dev-1" {
		t.Errorf("device = %q", got.Payload.Device)
	}
	if got.Payload.Capability == nil || got.Payload.Capability.Instance != "powerSwitch" {
		t.Errorf("capability = %+v", got.Payload.Capability)
	}
	if got.RequestID == "" {
		t.Error("missing request id")
	}
}

func TestLightingState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"payload": map[string]any{
				"capabilities": []map[string]any{
					{"type": capOnOff, "instance": "powerSwitch", "state": map[string]any{"value": 0}},
					{"type": capRange, "instance": "brightness", "state": map[string]any{"value": 42}},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewLightingClient(EndpointConfig{BaseURL: srv.URL})
	state, err := c.State(context.Background(), "dev-1", "")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.PowerOn {
		t.Error("expected power off")
	}
	if state.Brightness != 42 {
		t.Errorf("brightness = %d, want 42", state.Brightness)
	}
}

func TestLightingVendorErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 429, "message": "too many requests"})
	}))
	defer srv.Close()

	c := NewLightingClient(EndpointConfig{BaseURL: srv.URL})
	if err := c.SetPower(context.Background(), "dev-1", "", false); err == nil {
		t.Fatal("expected vendor error code to surface as error")
	}
}

func TestThermostatSet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/thermostats/tstat-1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}))
		defer srv.Close()

		c := NewThermostatClient(EndpointConfig{BaseURL: srv.URL})
		temp := 70.0
		if err := c.Set(context.Background(), "tstat-1", "heat", &temp); err != nil {
			t.Fatalf("Set: %v", err)
		}
	})

	t.Run("error field in body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "compressor lockout"})
		}))
		defer srv.Close()

		c := NewThermostatClient(EndpointConfig{BaseURL: srv.URL})
		if err := c.Set(context.Background(), "tstat-1", "cool", nil); err == nil {
			t.Fatal("expected error from body error field")
		}
	})
}

func TestVehicleCommand(t *testing.T) {
	t.Run("unknown command rejected locally", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		c := NewVehicleClient(EndpointConfig{BaseURL: srv.URL})
		if err := c.Command(context.Background(), "veh-1", "self_destruct"); err == nil {
			t.Fatal("expected error for unknown command")
		}
		if calls != 0 {
			t.Errorf("unknown command reached the API (%d calls)", calls)
		}
	})

	t.Run("rejected by API", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"result": false, "reason": "vehicle asleep"})
		}))
		defer srv.Close()

		c := NewVehicleClient(EndpointConfig{BaseURL: srv.URL})
		err := c.Command(context.Background(), "veh-1", "unlock")
		if err == nil {
			t.Fatal("expected rejection error")
		}
	})

	t.Run("success", func(t *testing.T) {
		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			json.NewEncoder(w).Encode(map[string]any{"result": true})
		}))
		defer srv.Close()

		c := NewVehicleClient(EndpointConfig{BaseURL: srv.URL})
		if err := c.Command(context.Background(), "veh-1", "lock"); err != nil {
			t.Fatalf("Command: %v", err)
		}
		if path != "/vehicles/veh-1/command/lock" {
			t.Errorf("path = %s", path)
		}
	})
}

func TestSMSSendAndAudioAnnounce(t *testing.T) {
	var smsBody smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/messages":
			json.NewDecoder(r.Body).Decode(&smsBody)
			json.NewEncoder(w).Encode(map[string]any{"sent": true})
		case "/rooms/kitchen/announce":
			json.NewEncoder(w).Encode(map[string]any{"status": "played"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sms := NewSMSClient(SMSConfig{EndpointConfig: EndpointConfig{BaseURL: srv.URL}, From: "+15550009999"})
	if err := sms.Send(context.Background(), "+15550102020", "your payment link"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if smsBody.To != "+15550102020" || smsBody.From != "+15550009999" {
		t.Errorf("sms request = %+v", smsBody)
	}

	audio := NewAudioClient(EndpointConfig{BaseURL: srv.URL})
	if err := audio.Announce(context.Background(), "kitchen", "dinner is ready"); err != nil {
		t.Fatalf("Announce: %v", err)
	}
}

func TestHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewThermostatClient(EndpointConfig{BaseURL: srv.URL})
	if _, err := c.Status(context.Background(), "tstat-1"); err == nil {
		t.Fatal("expected error on 502")
	}
}
