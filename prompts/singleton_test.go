package prompts

import "testing"

func TestGlobal(t *testing.T) {
	ResetGlobal()
	defer ResetGlobal()

	first := Global()
	if first == nil {
		t.Fatal("expected registry")
	}
	if first != Global() {
		t.Error("expected same instance on repeat calls")
	}

	key := Key{Module: "planbind", Domain: "workflow", Mode: "standard", Step: StepBind}
	if _, ok := first.Lookup(key); !ok {
		t.Error("expected built-in templates in global registry")
	}
}

func TestInitGlobal(t *testing.T) {
	ResetGlobal()
	defer ResetGlobal()

	custom := NewRegistry()
	InitGlobal(custom)

	if Global() != custom {
		t.Error("expected InitGlobal to install the given registry")
	}
}
