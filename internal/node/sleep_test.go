package node

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestHostSleeper_Command(t *testing.T) {
	s, err := NewHostSleeper(`rtcwake -m off -s {seconds} --comment "wake in {millis} ms"`)
	if err != nil {
		t.Fatalf("NewHostSleeper() error = %v", err)
	}
	var got []string
	s.run = func(_ context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	if err := s.DeepSleep(context.Background(), 1500*time.Millisecond); err != nil {
		t.Fatalf("DeepSleep() error = %v", err)
	}
	want := []string{"rtcwake", "-m", "off", "-s", "2", "--comment", "wake in 1500 ms"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("argv = %q; want %q", got, want)
	}
}

func TestHostSleeper_NoCommand(t *testing.T) {
	s, err := NewHostSleeper("")
	if err != nil {
		t.Fatalf("NewHostSleeper() error = %v", err)
	}
	called := false
	s.run = func(context.Context, string, ...string) error {
		called = true
		return nil
	}
	if err := s.DeepSleep(context.Background(), time.Minute); err != nil {
		t.Fatalf("DeepSleep() error = %v", err)
	}
	if called {
		t.Errorf("command run with empty configuration")
	}
}

func TestNewHostSleeper_BadQuoting(t *testing.T) {
	if _, err := NewHostSleeper(`rtcwake "unterminated`); err == nil {
		t.Errorf("NewHostSleeper() error = nil; want non-nil")
	}
}
