package agent

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusInitializing, StatusIdle, true},
		{StatusIdle, StatusRunning, true},
		{StatusRunning, StatusIdle, true},
		{StatusIdle, StatusError, true},
		{StatusRunning, StatusError, true},
		{StatusInitializing, StatusStopped, true},
		{StatusIdle, StatusStopped, true},
		{StatusRunning, StatusStopped, true},
		{StatusError, StatusStopped, true},

		{StatusInitializing, StatusRunning, false},
		{StatusInitializing, StatusError, false},
		{StatusIdle, StatusInitializing, false},
		{StatusRunning, StatusInitializing, false},
		{StatusError, StatusIdle, false},
		{StatusError, StatusRunning, false},
		{StatusStopped, StatusIdle, false},
		{StatusStopped, StatusStopped, false},
		{Status("bogus"), StatusStopped, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestAllowedTransitions(t *testing.T) {
	t.Parallel()

	got := AllowedTransitions(StatusIdle)
	want := []Status{StatusRunning, StatusError, StatusStopped}
	if len(got) != len(want) {
		t.Fatalf("AllowedTransitions(idle) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedTransitions(idle)[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if got := AllowedTransitions(StatusStopped); len(got) != 0 {
		t.Errorf("AllowedTransitions(stopped) = %v, want none", got)
	}
}

func TestStatus_IsValid(t *testing.T) {
	t.Parallel()

	for _, s := range AllStatuses() {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
	}
	if Status("paused").IsValid() {
		t.Error("paused should not be valid")
	}
	if !StatusStopped.IsTerminal() || StatusIdle.IsTerminal() {
		t.Error("only stopped is terminal")
	}
}
