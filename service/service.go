// Package service exposes the orchestrator over NATS request/reply. Each
// command is one subject under fusionpilot.cmd.*; the handler loads the
// conversation's session from the store, invokes the orchestrator, and
// persists the session back, so the orchestrator itself holds no
// cross-call state.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/framelight/fusionpilot/orchestrator"
	"github.com/framelight/fusionpilot/storage"
)

// CommandPrefix is the subject namespace for all service commands.
const CommandPrefix = "fusionpilot.cmd."

// Request is the inbound command envelope. Fields beyond ConversationID
// are per-command.
type Request struct {
	ConversationID string  `json:"conversation_id"`
	Text           string  `json:"text,omitempty"`
	Seconds        float64 `json:"seconds,omitempty"`
}

// ErrorBody carries the taxonomy code alongside the human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the outbound envelope. Exactly one of Result and Error is
// set.
type Response struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// handlerFunc serves one command. The returned value is marshalled into
// Response.Result.
type handlerFunc func(ctx context.Context, req *Request) (any, error)

// Service dispatches NATS commands to the orchestrator.
type Service struct {
	nc      *nats.Conn
	store   *storage.SessionStore
	orch    *orchestrator.Orchestrator
	logger  *slog.Logger
	metrics *Metrics

	handlers map[string]handlerFunc
	sub      *nats.Subscription

	// One inbound command at a time per conversation. Entries are pruned
	// once no handler holds or waits on them.
	mu    sync.Mutex
	locks map[string]*convLock
}

// convLock serializes command handling for one conversation. refs counts
// the holder plus waiters so the entry can be dropped when idle, keeping
// the lock table from growing one entry per conversation forever.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Service. A nil metrics registers on the default registry.
func New(nc *nats.Conn, store *storage.SessionStore, orch *orchestrator.Orchestrator, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	s := &Service{
		nc:      nc,
		store:   store,
		orch:    orch,
		logger:  logger,
		metrics: metrics,
		locks:   make(map[string]*convLock),
	}
	s.handlers = map[string]handlerFunc{
		"classify_and_plan":   s.handleClassifyAndPlan,
		"advance_step":        s.handleAdvanceStep,
		"amend_step":          s.handleAmendStep,
		"get_context_summary": s.handleContextSummary,
		"set_render_ceiling":  s.handleSetRenderCeiling,
		"reset_session":       s.handleResetSession,
	}
	return s
}

// Start subscribes to the command namespace.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(CommandPrefix+">", func(msg *nats.Msg) {
		go s.dispatch(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe commands: %w", err)
	}
	s.sub = sub
	s.logger.Info("service started", "subject", CommandPrefix+">")
	return nil
}

// Stop drains the command subscription.
func (s *Service) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}

// dispatch decodes one command message, serializes per conversation, runs
// the handler, and responds with the envelope.
func (s *Service) dispatch(ctx context.Context, msg *nats.Msg) {
	command := strings.TrimPrefix(msg.Subject, CommandPrefix)

	handler, ok := s.handlers[command]
	if !ok {
		s.metrics.Commands.WithLabelValues(command, "error").Inc()
		s.respondError(msg, orchestrator.CodeUnknownCommand, fmt.Sprintf("unknown command %q", command))
		return
	}

	var req Request
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.metrics.Commands.WithLabelValues(command, "error").Inc()
			s.respondError(msg, orchestrator.CodeInternal, fmt.Sprintf("malformed request: %v", err))
			return
		}
	}

	if req.ConversationID != "" {
		lock := s.acquireLock(req.ConversationID)
		defer s.releaseLock(req.ConversationID, lock)
	}

	result, err := handler(ctx, &req)
	if err != nil {
		s.metrics.Commands.WithLabelValues(command, "error").Inc()
		s.logger.Warn("command failed", "command", command, "conversation", req.ConversationID, "error", err)
		s.respondError(msg, codeFor(err), err.Error())
		return
	}

	s.metrics.Commands.WithLabelValues(command, "ok").Inc()
	s.observeReply(result)

	data, err := json.Marshal(result)
	if err != nil {
		s.respondError(msg, orchestrator.CodeInternal, fmt.Sprintf("marshal result: %v", err))
		return
	}
	s.respond(msg, Response{Success: true, Result: data})
}

// observeReply updates plan and step counters from orchestrator reply
// details.
func (s *Service) observeReply(result any) {
	reply, ok := result.(*orchestrator.Reply)
	if !ok || reply == nil {
		return
	}
	if tag := reply.Details["tag"]; tag != "" {
		s.metrics.PlansBuilt.WithLabelValues(tag).Inc()
	}
	if status := reply.Details["status"]; status != "" {
		s.metrics.StepsExecuted.WithLabelValues(reply.Details["domain"], status).Inc()
	}
}

func (s *Service) respond(msg *nats.Msg, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("respond failed", "subject", msg.Subject, "error", err)
	}
}

func (s *Service) respondError(msg *nats.Msg, code orchestrator.Code, message string) {
	s.respond(msg, Response{Success: false, Error: &ErrorBody{Code: string(code), Message: message}})
}

// acquireLock blocks until this conversation's in-flight command finishes.
func (s *Service) acquireLock(id string) *convLock {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &convLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseLock unlocks and prunes the table entry once nothing holds or
// waits on it.
func (s *Service) releaseLock(id string, lock *convLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

// persist writes the session back regardless of the command outcome: the
// orchestrator may have mutated it (at minimum the conversation log)
// before failing, and the store must never keep a stale pre-error copy.
func (s *Service) persist(ctx context.Context, sess *orchestrator.Session, opErr error) error {
	if err := s.store.Put(ctx, sess); err != nil {
		if opErr != nil {
			s.logger.Warn("persist session after failed command", "conversation", sess.ID, "error", err)
			return opErr
		}
		return err
	}
	return opErr
}

// codeFor extends the orchestrator taxonomy with the storage sentinel.
func codeFor(err error) orchestrator.Code {
	if errors.Is(err, storage.ErrNotFound) {
		return orchestrator.CodeSessionNotFound
	}
	return orchestrator.CodeFor(err)
}

// --- handlers ---

func (s *Service) handleClassifyAndPlan(ctx context.Context, req *Request) (any, error) {
	sess, err := s.store.GetOrCreate(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	reply, err := s.orch.HandleMessage(ctx, sess, req.Text)
	if err := s.persist(ctx, sess, err); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Service) handleAdvanceStep(ctx context.Context, req *Request) (any, error) {
	sess, err := s.store.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	reply, err := s.orch.AdvanceStep(ctx, sess)
	if err := s.persist(ctx, sess, err); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Service) handleAmendStep(ctx context.Context, req *Request) (any, error) {
	sess, err := s.store.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	reply, err := s.orch.AmendStep(sess, req.Text)
	if err := s.persist(ctx, sess, err); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *Service) handleContextSummary(ctx context.Context, req *Request) (any, error) {
	summary, err := s.orch.ContextSummary(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"summary": summary}, nil
}

func (s *Service) handleSetRenderCeiling(ctx context.Context, req *Request) (any, error) {
	effective, err := s.orch.SetRenderCeiling(req.Seconds)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"ceiling_seconds": effective}, nil
}

func (s *Service) handleResetSession(ctx context.Context, req *Request) (any, error) {
	sess, err := s.store.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	reply := s.orch.ResetSession(sess)
	if err := s.persist(ctx, sess, nil); err != nil {
		return nil, err
	}
	return reply, nil
}
