package browser

import (
	"testing"

	"github.com/dtnitsch/surfcore/models"
)

func driverConfig(engine string) models.DriverConfig {
	return models.DriverConfig{Engine: engine, Headless: true}
}

func TestWaitPolicySelector(t *testing.T) {
	tests := []struct {
		policy   WaitPolicy
		wantSel  string
		wantOK   bool
	}{
		{policy: WaitLoad, wantSel: "", wantOK: false},
		{policy: WaitNetworkIdle, wantSel: "", wantOK: false},
		{policy: "selector:#content", wantSel: "#content", wantOK: true},
		{policy: "selector:article > p", wantSel: "article > p", wantOK: true},
	}

	for _, tt := range tests {
		sel, ok := tt.policy.Selector()
		if sel != tt.wantSel || ok != tt.wantOK {
			t.Errorf("%q.Selector() = (%q, %v), want (%q, %v)", tt.policy, sel, ok, tt.wantSel, tt.wantOK)
		}
	}
}

func TestValidWaitPolicy(t *testing.T) {
	tests := []struct {
		policy WaitPolicy
		want   bool
	}{
		{policy: WaitLoad, want: true},
		{policy: WaitDOMReady, want: true},
		{policy: WaitNetworkIdle, want: true},
		{policy: "", want: true},
		{policy: "selector:#main", want: true},
		{policy: "selector:", want: false},
		{policy: "eventually", want: false},
	}

	for _, tt := range tests {
		if got := ValidWaitPolicy(tt.policy); got != tt.want {
			t.Errorf("ValidWaitPolicy(%q) = %v, want %v", tt.policy, got, tt.want)
		}
	}
}

func TestValidAction(t *testing.T) {
	for _, action := range []Action{ActionClick, ActionType, ActionSelect, ActionScroll, ActionHover} {
		if !ValidAction(action) {
			t.Errorf("ValidAction(%q) = false, want true", action)
		}
	}
	if ValidAction("teleport") {
		t.Error("ValidAction(\"teleport\") = true, want false")
	}
}

func TestNewDriver(t *testing.T) {
	tests := []struct {
		engine  string
		wantErr bool
	}{
		{engine: "rod"},
		{engine: "static"},
		{engine: "selenium", wantErr: true},
		{engine: "", wantErr: true},
	}

	for _, tt := range tests {
		cfg := driverConfig(tt.engine)
		d, err := NewDriver(cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewDriver(%q) returned nil error", tt.engine)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewDriver(%q) failed: %v", tt.engine, err)
			continue
		}
		if d == nil {
			t.Errorf("NewDriver(%q) returned nil driver", tt.engine)
		}
	}
}
