package input

import (
	"encoding/json"
	"testing"
)

func TestParseTrigger(t *testing.T) {
	for _, tr := range Triggers {
		got, err := ParseTrigger(tr.String())
		if err != nil || got != tr {
			t.Errorf("ParseTrigger(%q) = %v, %v", tr.String(), got, err)
		}
	}
	if _, err := ParseTrigger("up"); err == nil {
		t.Error("ParseTrigger accepted an unknown name")
	}
}

func TestTriggerJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Trigger{"t": TriggerRight})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"t":"right"}` {
		t.Errorf("marshal = %s", b)
	}
}

func TestDeviceEventDecodesBrowserPayload(t *testing.T) {
	var ev DeviceEvent
	payload := `{"device":"keyboard","event":"up","key":"ArrowLeft","meta":false}`
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Device != DeviceKeyboard || ev.Kind != KindUp || ev.Key != "ArrowLeft" {
		t.Errorf("decoded %+v", ev)
	}
	if got := NewRouter().Dispatch(ev); got != TriggerLeft {
		t.Errorf("decoded event dispatched %v, want left", got)
	}
}

func TestCustomBindings(t *testing.T) {
	b := NewBindings(Binding{"J", TriggerLeft}, Binding{"K", TriggerCenter}, Binding{"L", TriggerRight})
	r := NewRouter(WithBindings(b))
	if got := r.Dispatch(keyUp("j")); got != TriggerLeft {
		t.Errorf("j fired %v", got)
	}
	if got := r.Dispatch(keyUp("A")); got != TriggerNone {
		t.Errorf("A fired %v with custom bindings", got)
	}
	if DefaultBindings().Len() != 8 {
		t.Errorf("default table has %d keys, want 8", DefaultBindings().Len())
	}
}

func TestBindingsListSorted(t *testing.T) {
	list := NewBindings(Binding{"KeyD", TriggerRight}, Binding{"a", TriggerLeft}).List()
	if len(list) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(list))
	}
	if list[0].Key != "A" || list[1].Key != "D" {
		t.Errorf("List = %+v, want normalized keys A then D", list)
	}
}
