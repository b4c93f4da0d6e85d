package bootstrap

import (
	"errors"
	"testing"
)

const info = `{"application":{"version":"3.10"},"plugin":{"uuid":"pro.popstas.mqtt","version":"1.0.0"}}`

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantPort  int
		wantMode  Mode
		wantValid bool
		wantErr   error
	}{
		{
			name:      "positional plugin",
			args:      []string{"9001", "c1", "registerPlugin", info},
			wantPort:  9001,
			wantMode:  ModePlugin,
			wantValid: true,
		},
		{
			name:      "positional inspector",
			args:      []string{"9001", "pi-1", "registerPropertyInspector", info, `{"action":"pro.popstas.mqtt.mqttButton","context":"c1","payload":{"settings":{"httpUrl":"/x"}}}`},
			wantPort:  9001,
			wantMode:  ModeInspector,
			wantValid: true,
		},
		{
			name:      "single dash flags",
			args:      []string{"-port", "28196", "-pluginUUID", "c1", "-registerEvent", "registerPlugin", "-info", info},
			wantPort:  28196,
			wantMode:  ModePlugin,
			wantValid: true,
		},
		{
			name:      "double dash with equals",
			args:      []string{"--port=28196", "--pluginUUID=c1", "--registerEvent=registerPlugin", "--info=" + info},
			wantPort:  28196,
			wantMode:  ModePlugin,
			wantValid: true,
		},
		{
			name:      "no arguments",
			args:      nil,
			wantErr:   ErrMissingArgument,
			wantValid: false,
		},
		{
			name:      "bad port",
			args:      []string{"http", "c1", "registerPlugin", info},
			wantErr:   ErrInvalidArgument,
			wantValid: false,
		},
		{
			name:      "missing event",
			args:      []string{"9001", "c1"},
			wantPort:  9001,
			wantErr:   ErrMissingArgument,
			wantValid: false,
		},
		{
			name:      "bad info json keeps connection",
			args:      []string{"9001", "c1", "registerPlugin", "{not json"},
			wantPort:  9001,
			wantErr:   ErrInvalidArgument,
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if d.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", d.Port, tt.wantPort)
			}
			if d.Mode() != tt.wantMode {
				t.Errorf("Mode() = %v, want %v", d.Mode(), tt.wantMode)
			}
			if d.Valid() != tt.wantValid {
				t.Errorf("Valid() = %v, want %v", d.Valid(), tt.wantValid)
			}
		})
	}
}

func TestParse_InspectorDetails(t *testing.T) {
	d, err := Parse([]string{"9001", "pi-1", "registerPropertyInspector", info,
		`{"action":"pro.popstas.mqtt.mqttButton","context":"c1","payload":{"settings":{"httpUrl":"/x"}}}`})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.Inspector.Action != "pro.popstas.mqtt.mqttButton" || d.Inspector.Context != "c1" {
		t.Errorf("Inspector = %+v", d.Inspector)
	}
	if string(d.InspectorSettings()) != `{"httpUrl":"/x"}` {
		t.Errorf("InspectorSettings() = %s", d.InspectorSettings())
	}
	if d.PluginUUID("fallback") != "pro.popstas.mqtt" {
		t.Errorf("PluginUUID() = %q", d.PluginUUID("fallback"))
	}
}

func TestDescriptor_TransportConfig(t *testing.T) {
	d, _ := Parse([]string{"9001", "c1", "registerPlugin", info})
	cfg := d.TransportConfig()
	if cfg.Port != 9001 || cfg.UUID != "c1" || cfg.RegisterEvent != "registerPlugin" {
		t.Errorf("TransportConfig() = %+v", cfg)
	}

	invalid := Descriptor{Port: 9001}
	if invalid.TransportConfig().Port != 0 {
		t.Error("invalid descriptor produced a usable transport config")
	}
	if invalid.PluginUUID("fallback") != "fallback" {
		t.Error("PluginUUID() ignored fallback")
	}
}

func TestNormalizeFlags(t *testing.T) {
	got := normalizeFlags([]string{"-port", "1", "-port=2", "--info", "-x", "value"})
	want := []string{"--port", "1", "--port=2", "--info", "-x", "value"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("normalizeFlags()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
