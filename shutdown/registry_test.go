package shutdown

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryRunsByPriorityThenInsertionOrder(t *testing.T) {
	registry := NewRegistry()

	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	registry.Register("b", 20, record("b"))
	registry.Register("a1", 10, record("a1"))
	registry.Register("a2", 10, record("a2"))

	if errs := registry.Run(context.Background()); errs != nil {
		t.Fatalf("Run() errors = %v", errs)
	}

	want := []string{"a1", "a2", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRegistryContinuesPastFailures(t *testing.T) {
	registry := NewRegistry()

	ran := false
	registry.Register("bad", 10, func(ctx context.Context) error {
		return errors.New("boom")
	})
	registry.Register("good", 20, func(ctx context.Context) error {
		ran = true
		return nil
	})

	errs := registry.Run(context.Background())
	if len(errs) != 1 {
		t.Errorf("Run() returned %d errors, want 1", len(errs))
	}
	if !ran {
		t.Error("later hook skipped after an earlier failure")
	}
}

func TestRegistryClosedAfterRun(t *testing.T) {
	registry := NewRegistry()
	registry.Run(context.Background())

	registry.Register("late", 10, func(ctx context.Context) error {
		t.Error("late hook executed")
		return nil
	})
	if errs := registry.Run(context.Background()); errs != nil {
		t.Errorf("second Run() errors = %v, want nil", errs)
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d after close, want 0", registry.Count())
	}
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry()
	registry.Register("second", 20, func(ctx context.Context) error { return nil })
	registry.Register("first", 10, func(ctx context.Context) error { return nil })

	names := registry.Names()
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Errorf("Names() = %v, want [first second]", names)
	}
}
