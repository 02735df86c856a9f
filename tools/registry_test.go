package tools

import "testing"

func TestRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Descriptor{Name: "ehr/search_person", Description: "Search the EHR"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Register(Descriptor{Description: "nameless"}); err == nil {
		t.Error("expected error for descriptor without name")
	}

	if !r.Has("ehr/search_person") {
		t.Error("expected registered tool to exist")
	}
	if r.Has("ehr/send_fax") {
		t.Error("expected unknown tool to be absent")
	}
}

func TestNewRegistryFromDescriptors(t *testing.T) {
	r, err := NewRegistryFromDescriptors([]Descriptor{
		{Name: "directory/search"},
		{Name: "ehr/search_person"},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 tools, got %d", r.Len())
	}

	if _, err := NewRegistryFromDescriptors([]Descriptor{{Name: ""}}); err == nil {
		t.Error("expected error for invalid descriptor")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Descriptor{
		Name:       "pharmacy/submit_refill",
		Parameters: map[string]any{"rx_number": map[string]any{"type": "string"}},
	})

	d, ok := r.Get("pharmacy/submit_refill")
	if !ok {
		t.Fatal("expected tool found")
	}
	if d.Parameters["rx_number"] == nil {
		t.Error("expected parameters preserved")
	}

	if _, ok := r.Get("nope"); ok {
		t.Error("expected miss for unknown tool")
	}
}

func TestListSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"pharmacy/submit_refill", "directory/search", "ehr/search_person"} {
		_ = r.Register(Descriptor{Name: name})
	}

	names := r.Names()
	want := []string{"directory/search", "ehr/search_person", "pharmacy/submit_refill"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
