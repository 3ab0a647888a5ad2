// Package main implements mock collaborator backends for development and
// testing. It answers the compositor, generator, and source-control
// subjects with deterministic in-memory responses, eliminating the need
// for a real compositing host while wiring or demoing the assistant.
//
// Usage:
//
//	mock-backends -nats nats://localhost:4222
//	mock-backends -fail-generate   # simulate a broken generator
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/framelight/fusionpilot/backend"
)

type element struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// state is the mock composition. One instance per process; the tests and
// demos this binary serves are single-tenant.
type state struct {
	mu       sync.Mutex
	elements []element
	nextRef  atomic.Int64

	failGenerate bool
}

func main() {
	natsURL := flag.String("nats", nats.DefaultURL, "NATS server URL")
	failGenerate := flag.Bool("fail-generate", false, "make every generation call fail")
	flag.Parse()

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Fatalf("connect to NATS: %v", err)
	}
	defer nc.Drain()

	s := &state{failGenerate: *failGenerate}
	if err := s.subscribeAll(nc); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	log.Printf("mock backends ready on %s", *natsURL)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
}

func (s *state) subscribeAll(nc *nats.Conn) error {
	handlers := map[string]nats.MsgHandler{
		backend.SubjectCompositorCreate:    s.handleCreate,
		backend.SubjectCompositorConnect:   s.handleConnect,
		backend.SubjectCompositorEnumerate: s.handleEnumerate,
		backend.SubjectCompositorClear:     s.handleClear,
		backend.SubjectCompositorPreview:   s.handlePreview,
		backend.SubjectGeneratorGenerate:   s.handleGenerate,
		backend.SubjectSourceControlInvoke: s.handleSourceControl,
	}
	for subject, handler := range handlers {
		if _, err := nc.Subscribe(subject, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	return nil
}

func respond(msg *nats.Msg, result any) {
	body := map[string]any{"success": true}
	if result != nil {
		body["result"] = result
	}
	data, _ := json.Marshal(body)
	_ = msg.Respond(data)
}

func respondError(msg *nats.Msg, message string) {
	data, _ := json.Marshal(map[string]any{"success": false, "error": message})
	_ = msg.Respond(data)
}

func (s *state) handleCreate(msg *nats.Msg) {
	var req struct {
		Kind   string            `json:"kind"`
		Params map[string]string `json:"params"`
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		respondError(msg, fmt.Sprintf("malformed create request: %v", err))
		return
	}

	ref := fmt.Sprintf("el-%d", s.nextRef.Add(1))
	name := req.Kind
	if color := req.Params["color"]; color != "" {
		name = color + " " + req.Kind
	}

	s.mu.Lock()
	s.elements = append(s.elements, element{Ref: ref, Name: name, Kind: req.Kind})
	s.mu.Unlock()

	log.Printf("create %s -> %s", req.Kind, ref)
	respond(msg, map[string]string{"ref": ref})
}

func (s *state) handleConnect(msg *nats.Msg) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
		Slot string `json:"slot"`
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		respondError(msg, fmt.Sprintf("malformed connect request: %v", err))
		return
	}
	log.Printf("connect %s -> %s.%s", req.From, req.To, req.Slot)
	respond(msg, nil)
}

func (s *state) handleEnumerate(msg *nats.Msg) {
	s.mu.Lock()
	elements := make([]element, len(s.elements))
	copy(elements, s.elements)
	s.mu.Unlock()

	respond(msg, map[string]any{"elements": elements})
}

func (s *state) handleClear(msg *nats.Msg) {
	s.mu.Lock()
	s.elements = nil
	s.mu.Unlock()

	log.Println("cleared composition")
	respond(msg, nil)
}

func (s *state) handlePreview(msg *nats.Msg) {
	var req struct {
		InFrame  int `json:"in_frame"`
		OutFrame int `json:"out_frame"`
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		respondError(msg, fmt.Sprintf("malformed preview request: %v", err))
		return
	}
	log.Printf("preview frames %d-%d", req.InFrame, req.OutFrame)
	respond(msg, nil)
}

func (s *state) handleGenerate(msg *nats.Msg) {
	if s.failGenerate {
		respondError(msg, "generation backend disabled")
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		respondError(msg, fmt.Sprintf("malformed generate request: %v", err))
		return
	}

	asset := fmt.Sprintf("/tmp/mock-assets/gen-%d.png", s.nextRef.Add(1))
	log.Printf("generate %q -> %s", req.Prompt, asset)
	respond(msg, map[string]string{"asset": asset})
}

func (s *state) handleSourceControl(msg *nats.Msg) {
	var req struct {
		Tool     string `json:"tool"`
		Tier     string `json:"tier"`
		Approved bool   `json:"approved"`
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		respondError(msg, fmt.Sprintf("malformed invoke request: %v", err))
		return
	}

	log.Printf("source-control %s (tier %s, approved %v)", req.Tool, req.Tier, req.Approved)
	respond(msg, map[string]any{
		"details": map[string]string{"tool": req.Tool, "tier": req.Tier},
	})
}
