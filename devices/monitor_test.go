package devices

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// switchableProvider swaps its route set under a mutex.
type switchableProvider struct {
	mu     sync.Mutex
	routes Routes
	err    error
}

func (p *switchableProvider) get() (Routes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.routes, p.err
}

func (p *switchableProvider) set(routes Routes) {
	p.mu.Lock()
	p.routes = routes
	p.mu.Unlock()
}

func TestMonitorInitialScan(t *testing.T) {
	p := &switchableProvider{routes: Routes{{PortType: PortUSBAudio, Name: "Topping D90"}}}
	m, err := NewMonitor(p.get, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Close()

	if !m.DACPresent() {
		t.Error("DACPresent = false after initial scan of a usb route")
	}
	if got := m.Routes(); len(got) != 1 || got[0].Name != "Topping D90" {
		t.Errorf("Routes = %+v", got)
	}
}

func TestMonitorProviderFailure(t *testing.T) {
	p := &switchableProvider{err: errors.New("no audio services")}
	if _, err := NewMonitor(p.get, time.Hour, nil); err == nil {
		t.Error("expected initial scan failure to surface")
	}
}

func TestMonitorForceRefresh(t *testing.T) {
	p := &switchableProvider{routes: Routes{{PortType: PortBuiltInSpeaker, Name: "Speakers"}}}
	m, err := NewMonitor(p.get, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Close()

	if m.DACPresent() {
		t.Fatal("builtin speakers must not classify as a DAC")
	}

	p.set(Routes{{PortType: PortUSBAudio, Name: "USB Audio DAC"}})
	m.ForceRefresh()

	if !m.DACPresent() {
		t.Error("DACPresent = false after refresh onto a usb route")
	}

	select {
	case change := <-m.Changes():
		if !change.DACPresent {
			t.Errorf("change.DACPresent = false, want true")
		}
	default:
		t.Error("no change event published")
	}
}

func TestMonitorCallbacks(t *testing.T) {
	p := &switchableProvider{routes: Routes{{PortType: PortBuiltInSpeaker, Name: "Speakers"}}}
	m, err := NewMonitor(p.get, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Close()

	got := make(chan Change, 1)
	m.OnChange(func(c Change) { got <- c })

	p.set(Routes{{PortType: PortLineOut, Name: "Line Out"}})
	m.ForceRefresh()

	select {
	case c := <-got:
		if !c.DACPresent {
			t.Error("callback change.DACPresent = false, want true")
		}
	case <-time.After(time.Second):
		t.Error("callback not invoked")
	}
}

func TestMonitorNoChangeNoEvent(t *testing.T) {
	p := &switchableProvider{routes: Routes{{PortType: PortBuiltInSpeaker, Name: "Speakers"}}}
	m, err := NewMonitor(p.get, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	defer m.Close()

	m.ForceRefresh()
	select {
	case <-m.Changes():
		t.Error("identical route set must not publish a change")
	default:
	}
}
