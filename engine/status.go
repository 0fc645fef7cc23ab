package engine

import (
	"context"
	"encoding/json"
)

// Status is a point-in-time snapshot of the engine, shaped for direct
// serialization to a UI or diagnostic endpoint.
type Status struct {
	State       string  `json:"state"`
	Reason      string  `json:"reason,omitempty"`
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	SampleRate  float64 `json:"sampleRate"`
	Kind        string  `json:"kind,omitempty"`
	Path        string  `json:"path,omitempty"`
	GraphHealth string  `json:"graphHealth"`
	DACPresent  bool    `json:"dacPresent"`
}

// Status captures a consistent snapshot on the control queue.
func (e *Engine) Status() Status {
	s := Status{State: Idle.String()}
	_ = e.q.RunSync(func(context.Context) error {
		c := e.controller
		s.State = c.state.String()
		s.Reason = string(c.reason)
		s.IsPlaying = c.state == Playing
		if c.tracker != nil {
			s.CurrentTime = c.tracker.Position()
			s.Duration = c.tracker.Duration()
		}
		if c.h != nil {
			s.SampleRate = c.h.SampleRate()
			s.Kind = c.h.Kind().String()
			s.Path = c.h.Asset().Path
		}
		return nil
	})
	s.GraphHealth = e.graph.Health().String()
	s.DACPresent = e.DACPresent()
	return s
}

// JSON renders the snapshot, matching the wire shape used by status
// consumers.
func (s Status) JSON() ([]byte, error) {
	return json.Marshal(s)
}
