package wsrpc

import (
	"errors"
	"testing"
)

type demoApp struct{}

func (a *demoApp) Ping() string { return "pong" }

func (a *demoApp) Add(x, y int) int { return x + y }

func (a *demoApp) Fail() error { return errors.New("boom") }

func (a *demoApp) Lookup(key string) (string, error) {
	if key == "missing" {
		return "", errors.New("not found")
	}
	return "value:" + key, nil
}

//nolint:unused
func (a *demoApp) hidden() string { return "private" }

func TestCallNoArgs(t *testing.T) {
	r := NewRouter(&demoApp{})
	got, err := r.Call("Ping", nil)
	if err != nil {
		t.Fatalf("Call(Ping) error = %v", err)
	}
	if got != "pong" {
		t.Errorf("Call(Ping) = %v", got)
	}
}

func TestCallNumericCoercion(t *testing.T) {
	r := NewRouter(&demoApp{})
	// JSON decodes numbers as float64
	got, err := r.Call("Add", []interface{}{float64(2), float64(3)})
	if err != nil {
		t.Fatalf("Call(Add) error = %v", err)
	}
	if got != 5 {
		t.Errorf("Call(Add) = %v, want 5", got)
	}
}

func TestCallReturnsError(t *testing.T) {
	r := NewRouter(&demoApp{})
	if _, err := r.Call("Fail", nil); err == nil || err.Error() != "boom" {
		t.Errorf("Call(Fail) error = %v, want boom", err)
	}
}

func TestCallValueAndError(t *testing.T) {
	r := NewRouter(&demoApp{})

	got, err := r.Call("Lookup", []interface{}{"k"})
	if err != nil {
		t.Fatalf("Call(Lookup) error = %v", err)
	}
	if got != "value:k" {
		t.Errorf("Call(Lookup) = %v", got)
	}

	if _, err := r.Call("Lookup", []interface{}{"missing"}); err == nil {
		t.Error("Call(Lookup, missing) should fail")
	}
}

func TestCallUnknownMethod(t *testing.T) {
	r := NewRouter(&demoApp{})
	if _, err := r.Call("Nope", nil); err == nil {
		t.Error("unknown method should fail")
	}
}

func TestCallUnexportedNotRegistered(t *testing.T) {
	r := NewRouter(&demoApp{})
	if _, err := r.Call("hidden", nil); err == nil {
		t.Error("unexported method must not be callable")
	}
}

func TestCallArityMismatch(t *testing.T) {
	r := NewRouter(&demoApp{})
	if _, err := r.Call("Add", []interface{}{float64(1)}); err == nil {
		t.Error("wrong arity should fail")
	}
}
