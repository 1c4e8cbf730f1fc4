package input

import (
	"fmt"
	"strings"
)

// Trigger is a semantic user intent, independent of the device that produced it
type Trigger uint8

const (
	TriggerNone Trigger = iota
	TriggerLeft
	TriggerCenter
	TriggerRight
)

// Triggers lists the triggers a router can fire
var Triggers = [...]Trigger{TriggerLeft, TriggerCenter, TriggerRight}

func (t Trigger) String() string {
	switch t {
	case TriggerLeft:
		return "left"
	case TriggerCenter:
		return "center"
	case TriggerRight:
		return "right"
	}
	return "none"
}

// ParseTrigger accepts the names produced by String
func ParseTrigger(s string) (Trigger, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return TriggerLeft, nil
	case "center":
		return TriggerCenter, nil
	case "right":
		return TriggerRight, nil
	}
	return TriggerNone, fmt.Errorf("unknown trigger %q", s)
}

func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Trigger) UnmarshalText(b []byte) error {
	if string(b) == "none" {
		*t = TriggerNone
		return nil
	}
	v, err := ParseTrigger(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
