package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects the collaborator services listen on.
const (
	SubjectCompositorCreate    = "compositor.create"
	SubjectCompositorConnect   = "compositor.connect"
	SubjectCompositorEnumerate = "compositor.enumerate"
	SubjectCompositorClear     = "compositor.clear"
	SubjectCompositorPreview   = "compositor.preview"
	SubjectGeneratorGenerate   = "generator.generate"
	SubjectSourceControlInvoke = "sourcecontrol.invoke"
)

// wireReply is the collaborator reply envelope.
type wireReply struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// request performs one JSON request/reply round trip. A transport failure
// (no responders, timeout, closed connection) maps to ErrUnavailable; a
// failure reply maps to ErrExecution.
func request(ctx context.Context, nc *nats.Conn, subject string, req, result any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", subject, err)
	}

	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, subject, err)
	}

	var reply wireReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("%w: %s: malformed reply: %v", ErrExecution, subject, err)
	}
	if !reply.Success {
		return fmt.Errorf("%w: %s: %s", ErrExecution, subject, reply.Error)
	}
	if result != nil && len(reply.Result) > 0 {
		if err := json.Unmarshal(reply.Result, result); err != nil {
			return fmt.Errorf("%w: %s: decode result: %v", ErrExecution, subject, err)
		}
	}
	return nil
}

// withTimeout bounds ctx by d when d is positive. Generation calls pass
// zero and stay unbounded; they legitimately run long.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// NATSVisualEffects implements VisualEffects over NATS request/reply to an
// external compositor bridge.
type NATSVisualEffects struct {
	nc *nats.Conn

	// Timeout bounds each compositor call when positive.
	Timeout time.Duration
}

// NewNATSVisualEffects creates a compositor client on the given connection.
func NewNATSVisualEffects(nc *nats.Conn) *NATSVisualEffects {
	return &NATSVisualEffects{nc: nc}
}

type createRequest struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params,omitempty"`
	Color  *[4]float64       `json:"color,omitempty"`
}

type createReply struct {
	Ref ElementRef `json:"ref"`
}

// Create adds an element. A color name in params resolves to RGBA channels
// here so the bridge never has to know the palette.
func (v *NATSVisualEffects) Create(ctx context.Context, kind string, params map[string]string) (ElementRef, error) {
	req := createRequest{Kind: kind, Params: params}
	if name, ok := params["color"]; ok && name != "" {
		rgba := ColorRGBA(name)
		req.Color = &rgba
	}

	ctx, cancel := withTimeout(ctx, v.Timeout)
	defer cancel()

	var reply createReply
	if err := request(ctx, v.nc, SubjectCompositorCreate, req, &reply); err != nil {
		return "", err
	}
	return reply.Ref, nil
}

type connectRequest struct {
	From ElementRef `json:"from"`
	To   ElementRef `json:"to"`
	Slot string     `json:"slot"`
}

// Connect wires element a into b's input slot.
func (v *NATSVisualEffects) Connect(ctx context.Context, a, b ElementRef, slot string) error {
	ctx, cancel := withTimeout(ctx, v.Timeout)
	defer cancel()
	return request(ctx, v.nc, SubjectCompositorConnect, connectRequest{From: a, To: b, Slot: slot}, nil)
}

type enumerateReply struct {
	Elements []ElementDescriptor `json:"elements"`
}

// Enumerate lists the composition's elements.
func (v *NATSVisualEffects) Enumerate(ctx context.Context) ([]ElementDescriptor, error) {
	ctx, cancel := withTimeout(ctx, v.Timeout)
	defer cancel()

	var reply enumerateReply
	if err := request(ctx, v.nc, SubjectCompositorEnumerate, struct{}{}, &reply); err != nil {
		return nil, err
	}
	return reply.Elements, nil
}

// ClearAll removes every element.
func (v *NATSVisualEffects) ClearAll(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, v.Timeout)
	defer cancel()
	return request(ctx, v.nc, SubjectCompositorClear, struct{}{}, nil)
}

type previewRequest struct {
	InFrame  int `json:"in_frame"`
	OutFrame int `json:"out_frame"`
}

// Preview plays back the frame range.
func (v *NATSVisualEffects) Preview(ctx context.Context, inFrame, outFrame int) error {
	ctx, cancel := withTimeout(ctx, v.Timeout)
	defer cancel()
	return request(ctx, v.nc, SubjectCompositorPreview, previewRequest{InFrame: inFrame, OutFrame: outFrame}, nil)
}

// NATSGenerative implements Generative over NATS request/reply to an
// external generation service.
type NATSGenerative struct {
	nc *nats.Conn
}

// NewNATSGenerative creates a generator client on the given connection.
func NewNATSGenerative(nc *nats.Conn) *NATSGenerative {
	return &NATSGenerative{nc: nc}
}

type generateRequest struct {
	Prompt   string `json:"prompt"`
	MaxSteps int    `json:"max_steps"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type generateReply struct {
	Asset AssetRef `json:"asset"`
}

// Generate produces an asset for the prompt under the given constraints.
// Zero-value constraints use the fast defaults.
func (g *NATSGenerative) Generate(ctx context.Context, prompt string, c Constraints) (AssetRef, error) {
	def := DefaultConstraints()
	if c.MaxSteps <= 0 {
		c.MaxSteps = def.MaxSteps
	}
	if c.Width <= 0 {
		c.Width = def.Width
	}
	if c.Height <= 0 {
		c.Height = def.Height
	}

	var reply generateReply
	err := request(ctx, g.nc, SubjectGeneratorGenerate, generateRequest{
		Prompt:   prompt,
		MaxSteps: c.MaxSteps,
		Width:    c.Width,
		Height:   c.Height,
	}, &reply)
	if err != nil {
		return "", err
	}
	if reply.Asset == "" {
		return "", fmt.Errorf("%w: generator returned an empty asset reference", ErrExecution)
	}
	return reply.Asset, nil
}

// NATSSourceControl implements SourceControl over NATS request/reply.
// Wrap it in a Gate before handing it to the orchestrator.
type NATSSourceControl struct {
	nc *nats.Conn

	// Timeout bounds each invocation when positive.
	Timeout time.Duration
}

// NewNATSSourceControl creates a source-control client on the connection.
func NewNATSSourceControl(nc *nats.Conn) *NATSSourceControl {
	return &NATSSourceControl{nc: nc}
}

type invokeRequest struct {
	Tool     string         `json:"tool"`
	Params   map[string]any `json:"params,omitempty"`
	Tier     Tier           `json:"tier"`
	Approved bool           `json:"approved"`
}

// Invoke forwards the tool call. Tier classification travels with the
// request so the collaborator can audit it.
func (s *NATSSourceControl) Invoke(ctx context.Context, tool string, params map[string]any, approved bool) (Result, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var result Result
	err := request(ctx, s.nc, SubjectSourceControlInvoke, invokeRequest{
		Tool:     tool,
		Params:   params,
		Tier:     TierFor(tool),
		Approved: approved,
	}, &result)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrExecution) {
			return Result{Success: false, Error: err.Error()}, err
		}
		return Result{}, err
	}
	result.Success = true
	return result, nil
}
