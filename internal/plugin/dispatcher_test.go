package plugin

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-deck/internal/action"
	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

type nullSender struct{}

func (nullSender) Send(any) error { return nil }
func (nullSender) IsOpen() bool   { return true }

type nullQueue struct{}

func (nullQueue) Enqueue(string, string) {}

const testActionID = "pro.popstas.mqtt.mqttButton"

func newTestDispatcher() (*Dispatcher, *Store, *action.Registry) {
	store := NewStore()
	registry := action.NewRegistry(action.Deps{Sender: nullSender{}, Queue: nullQueue{}})
	return NewDispatcher(store, registry), store, registry
}

func frame(t *testing.T, v map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return data
}

// =============================================================================
// Parse Tests
// =============================================================================

func TestDispatch_ParseFailure(t *testing.T) {
	d, store, _ := newTestDispatcher()
	called := false
	d.Global(Handlers{"": func(protocol.Message) error { called = true; return nil }})

	for _, raw := range []string{`not json`, `{"context":"c"}`, `[]`} {
		err := d.Dispatch([]byte(raw))
		if !errors.Is(err, ErrParse) {
			t.Errorf("Dispatch(%q) error = %v, want ErrParse", raw, err)
		}
	}
	if _, ok := store.Current(); ok {
		t.Error("Current() set after unparseable frames")
	}
	if called {
		t.Error("handler ran for unparseable frame")
	}
}

func TestDispatch_RecordsCurrent(t *testing.T) {
	d, store, _ := newTestDispatcher()
	if err := d.Dispatch(frame(t, map[string]any{"event": "applicationDidLaunch"})); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	cur, ok := store.Current()
	if !ok || cur.Event != "applicationDidLaunch" {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

// =============================================================================
// Global Family Tests
// =============================================================================

func TestDispatch_GlobalHandlersBeforeBuiltin(t *testing.T) {
	d, store, _ := newTestDispatcher()

	var order []string
	d.Global(Handlers{protocol.EventDidReceiveGlobalSettings: func(protocol.Message) error {
		order = append(order, "first:"+string(store.GlobalSettings()))
		return nil
	}})
	d.Global(Handlers{protocol.EventDidReceiveGlobalSettings: func(protocol.Message) error {
		order = append(order, "second")
		return nil
	}})

	err := d.Dispatch(frame(t, map[string]any{
		"event":   protocol.EventDidReceiveGlobalSettings,
		"payload": map[string]any{"settings": map[string]any{"theme": "dark"}},
	}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(order) != 2 || order[0] != "first:" || order[1] != "second" {
		t.Errorf("order = %v, want handlers in order before the built-in update", order)
	}
	if got := string(store.GlobalSettings()); got != `{"theme":"dark"}` {
		t.Errorf("GlobalSettings() = %s", got)
	}
}

func TestDispatch_Devices(t *testing.T) {
	d, store, _ := newTestDispatcher()

	var changes []string
	store.OnDevicesChanged(func(added, removed []string) {
		changes = append(changes, "+"+strings.Join(added, ",")+"-"+strings.Join(removed, ","))
	})

	msgs := []map[string]any{
		{"event": protocol.EventDeviceDidConnect, "device": "dev-1"},
		{"event": protocol.EventDeviceDidConnect, "device": "dev-2"},
		{"event": protocol.EventDeviceDidConnect, "device": "dev-1"},
		{"event": protocol.EventDeviceDidConnect},
		{"event": protocol.EventDeviceDidDisconnect, "device": "dev-1"},
		{"event": protocol.EventDeviceDidDisconnect, "device": "unknown"},
	}
	for _, m := range msgs {
		if err := d.Dispatch(frame(t, m)); err != nil {
			t.Fatalf("Dispatch(%v) error = %v", m, err)
		}
	}

	devices := store.Devices()
	if len(devices) != 1 || devices[0] != "dev-2" {
		t.Errorf("Devices() = %v, want [dev-2]", devices)
	}
	want := []string{"+dev-1-", "+dev-2-", "+-dev-1"}
	if strings.Join(changes, " ") != strings.Join(want, " ") {
		t.Errorf("changes = %v, want %v", changes, want)
	}
	if !store.HasDevice("dev-2") || store.HasDevice("dev-1") {
		t.Error("HasDevice() disagrees with Devices()")
	}
}

func TestStore_RemoveDevicesObserver(t *testing.T) {
	d, store, _ := newTestDispatcher()

	var first, second int
	removeFirst := store.OnDevicesChanged(func(_, _ []string) { first++ })
	store.OnDevicesChanged(func(_, _ []string) { second++ })

	connect := func(device string) {
		t.Helper()
		if err := d.Dispatch(frame(t, map[string]any{"event": protocol.EventDeviceDidConnect, "device": device})); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}

	connect("dev-1")
	removeFirst()
	removeFirst()
	connect("dev-2")

	if first != 1 || second != 2 {
		t.Errorf("observer calls = %d/%d, want 1/2", first, second)
	}
}

func TestDispatch_UserInfo(t *testing.T) {
	d, store, _ := newTestDispatcher()
	err := d.Dispatch(frame(t, map[string]any{"event": protocol.EventSendUserInfo, "payload": map[string]any{"name": "x"}}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := string(store.UserInfo()); got != `{"name":"x"}` {
		t.Errorf("UserInfo() = %s", got)
	}
}

func TestDispatch_GlobalIgnoresInstanceEvents(t *testing.T) {
	d, _, _ := newTestDispatcher()
	called := false
	d.Global(Handlers{protocol.EventKeyUp: func(protocol.Message) error { called = true; return nil }})

	if err := d.Dispatch(frame(t, map[string]any{"event": protocol.EventKeyUp, "action": testActionID, "context": "c"})); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if called {
		t.Error("global handler received an instance event")
	}
}

// =============================================================================
// Instance Family Tests
// =============================================================================

func TestDispatch_WillAppearRegistersBeforeHandler(t *testing.T) {
	d, _, registry := newTestDispatcher()

	var seen *action.Instance
	d.Actions(testActionID, Handlers{protocol.EventWillAppear: func(msg protocol.Message) error {
		seen, _ = registry.Get(msg.Context)
		return nil
	}})

	err := d.Dispatch(frame(t, map[string]any{
		"event":   protocol.EventWillAppear,
		"action":  testActionID,
		"context": "ctx-1",
		"payload": map[string]any{"settings": map[string]any{"buttonIndex": 3}},
	}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if seen == nil {
		t.Fatal("instance not registered before the caller handler ran")
	}
	if string(seen.Settings()) != `{"buttonIndex":3}` {
		t.Errorf("Settings() = %s", seen.Settings())
	}
}

func TestDispatch_ActionIDFilter(t *testing.T) {
	d, _, registry := newTestDispatcher()
	called := false
	d.Actions(testActionID, Handlers{protocol.EventWillAppear: func(protocol.Message) error { called = true; return nil }})

	err := d.Dispatch(frame(t, map[string]any{"event": protocol.EventWillAppear, "action": "other.action", "context": "c"}))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if called {
		t.Error("handler ran for a different action id")
	}
	if registry.Len() != 0 {
		t.Error("instance registered without a matching subscription")
	}
}

func TestDispatch_LifecycleBuiltins(t *testing.T) {
	d, _, registry := newTestDispatcher()
	d.Actions(testActionID, Handlers{})

	steps := []map[string]any{
		{"event": protocol.EventWillAppear, "action": testActionID, "context": "c", "payload": map[string]any{"settings": map[string]any{"a": 1}}},
		{"event": protocol.EventWillAppear, "action": testActionID, "context": "c", "payload": map[string]any{"settings": map[string]any{"a": 99}}},
		{"event": protocol.EventDidReceiveSettings, "action": testActionID, "context": "c", "payload": map[string]any{"settings": map[string]any{"a": 2}}},
		{"event": protocol.EventTitleParametersDidChange, "action": testActionID, "context": "c", "payload": map[string]any{
			"title": "Lamp", "titleParameters": map[string]any{"fontSize": 12, "titleColor": "#fff"},
		}},
	}
	for _, m := range steps {
		if err := d.Dispatch(frame(t, m)); err != nil {
			t.Fatalf("Dispatch(%v) error = %v", m["event"], err)
		}
	}

	inst, ok := registry.Get("c")
	if !ok {
		t.Fatal("instance missing")
	}
	if string(inst.Settings()) != `{"a":2}` {
		t.Errorf("Settings() = %s, want didReceiveSettings value", inst.Settings())
	}
	if inst.Title() != "Lamp" || inst.TitleParameters().FontSize != 12 {
		t.Errorf("title state = %q %+v", inst.Title(), inst.TitleParameters())
	}

	if err := d.Dispatch(frame(t, map[string]any{"event": protocol.EventWillDisappear, "action": testActionID, "context": "c"})); err != nil {
		t.Fatalf("Dispatch(willDisappear) error = %v", err)
	}
	if registry.Len() != 0 {
		t.Error("instance not removed on willDisappear")
	}
}

func TestDispatch_RegistryOccupancy(t *testing.T) {
	type step struct {
		event   string
		context string
		want    map[string]bool
	}
	appear := func(id string, want map[string]bool) step { return step{protocol.EventWillAppear, id, want} }
	disappear := func(id string, want map[string]bool) step { return step{protocol.EventWillDisappear, id, want} }

	tests := []struct {
		name  string
		steps []step
	}{
		{"appear twice then disappear", []step{
			appear("c", map[string]bool{"c": true}),
			appear("c", map[string]bool{"c": true}),
			disappear("c", map[string]bool{"c": false}),
		}},
		{"disappear first", []step{
			disappear("c", map[string]bool{"c": false}),
			appear("c", map[string]bool{"c": true}),
		}},
		{"appear disappear appear", []step{
			appear("c", map[string]bool{"c": true}),
			disappear("c", map[string]bool{"c": false}),
			appear("c", map[string]bool{"c": true}),
		}},
		{"disappear twice", []step{
			appear("c", map[string]bool{"c": true}),
			disappear("c", map[string]bool{"c": false}),
			disappear("c", map[string]bool{"c": false}),
		}},
		{"independent contexts", []step{
			appear("a", map[string]bool{"a": true, "b": false}),
			appear("b", map[string]bool{"a": true, "b": true}),
			disappear("a", map[string]bool{"a": false, "b": true}),
			appear("a", map[string]bool{"a": true, "b": true}),
			disappear("b", map[string]bool{"a": true, "b": false}),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, registry := newTestDispatcher()
			d.Actions(testActionID, Handlers{})

			for i, st := range tt.steps {
				if err := d.Dispatch(frame(t, map[string]any{"event": st.event, "action": testActionID, "context": st.context})); err != nil {
					t.Fatalf("step %d: Dispatch(%s) error = %v", i, st.event, err)
				}
				present := 0
				for id, want := range st.want {
					_, ok := registry.Get(id)
					if ok != want {
						t.Errorf("step %d (%s %s): Get(%q) present = %v, want %v", i, st.event, st.context, id, ok, want)
					}
					if want {
						present++
					}
				}
				if registry.Len() != present {
					t.Errorf("step %d: Len() = %d, want %d", i, registry.Len(), present)
				}
			}
		})
	}
}

func TestDispatch_ReservedActionIDNeverDispatched(t *testing.T) {
	d, _, _ := newTestDispatcher()
	called := false
	d.Actions(testActionID, Handlers{protocol.ReservedActionID: func(protocol.Message) error { called = true; return nil }})

	if err := d.Dispatch(frame(t, map[string]any{"event": protocol.ReservedActionID, "action": testActionID, "context": "c"})); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if called {
		t.Error("handler registered under the reserved name was dispatched")
	}
}

func TestDispatch_HandlerFailureIsolated(t *testing.T) {
	d, _, registry := newTestDispatcher()

	d.Actions(testActionID, Handlers{protocol.EventWillAppear: func(protocol.Message) error { panic("boom") }})
	later := false
	d.Actions(testActionID, Handlers{protocol.EventWillAppear: func(protocol.Message) error { later = true; return errors.New("bad") }})

	err := d.Dispatch(frame(t, map[string]any{"event": protocol.EventWillAppear, "action": testActionID, "context": "c"}))

	var herr *HandlerError
	if !errors.As(err, &herr) {
		t.Fatalf("Dispatch() error = %v, want *HandlerError", err)
	}
	if herr.Panic == nil || herr.Event != protocol.EventWillAppear || herr.Handler != testActionID {
		t.Errorf("first HandlerError = %+v", herr)
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("joined error %q missing second handler failure", err)
	}
	if !later {
		t.Error("second handler skipped after the first panicked")
	}
	if registry.Len() != 1 {
		t.Error("built-in reaction skipped after handler panic")
	}
}

func TestDispatch_HandlersReceiveCopies(t *testing.T) {
	d, store, _ := newTestDispatcher()

	d.Global(Handlers{"custom": func(msg protocol.Message) error {
		for i := range msg.Payload {
			msg.Payload[i] = 'X'
		}
		return nil
	}})
	var second string
	d.Global(Handlers{"custom": func(msg protocol.Message) error {
		second = string(msg.Payload)
		return nil
	}})

	if err := d.Dispatch([]byte(`{"event":"custom","payload":{"k":1}}`)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if second != `{"k":1}` {
		t.Errorf("second handler saw %q, want untouched payload", second)
	}
	if cur, _ := store.Current(); string(cur.Payload) != `{"k":1}` {
		t.Errorf("Current payload mutated: %s", cur.Payload)
	}
}

func TestDispatch_StopRemovesSubscription(t *testing.T) {
	d, _, _ := newTestDispatcher()
	calls := 0
	stop := d.Global(Handlers{"custom": func(protocol.Message) error { calls++; return nil }})

	d.Dispatch([]byte(`{"event":"custom"}`)) //nolint:errcheck // Handlers succeed
	stop()
	stop()
	d.Dispatch([]byte(`{"event":"custom"}`)) //nolint:errcheck // Handlers succeed

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
