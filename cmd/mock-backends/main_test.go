package main

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestCreateTracksElements(t *testing.T) {
	s := &state{}

	s.handleCreate(&nats.Msg{Data: []byte(`{"kind":"Background","params":{"color":"blue"}}`)})
	s.handleCreate(&nats.Msg{Data: []byte(`{"kind":"Merge"}`)})

	if len(s.elements) != 2 {
		t.Fatalf("elements = %d, want 2", len(s.elements))
	}
	if s.elements[0].Kind != "Background" || s.elements[0].Name != "blue Background" {
		t.Errorf("unexpected first element: %+v", s.elements[0])
	}
	if s.elements[0].Ref == s.elements[1].Ref {
		t.Error("element refs must be unique")
	}

	s.handleClear(&nats.Msg{})
	if len(s.elements) != 0 {
		t.Errorf("clear left %d elements", len(s.elements))
	}
}

func TestMalformedRequestsRejected(t *testing.T) {
	s := &state{}

	s.handleCreate(&nats.Msg{Data: []byte(`{not json`)})
	if len(s.elements) != 0 {
		t.Error("malformed create mutated state")
	}
}
