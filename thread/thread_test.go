package thread

import (
	"errors"
	"testing"
)

func TestMainThread(t *testing.T) {
	value := 0
	Run(func() {
		Call(func() { value = 1 })
	})
	if value != 1 {
		t.Errorf("wrong value %v", value)
	}
}

func TestCallErr(t *testing.T) {
	want := errors.New("no window")
	var got error
	Run(func() {
		got = CallErr(func() error { return want })
	})
	if !errors.Is(got, want) {
		t.Errorf("wrong error %v", got)
	}
}
