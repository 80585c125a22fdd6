// Package server exposes the engine over HTTP: agent lifecycle, messaging,
// task execution and orchestration as a JSON API, plus a WebSocket feed of
// the engine's event stream.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/swarmbus-io/swarmbus"
	"github.com/swarmbus-io/swarmbus/agent"
	"github.com/swarmbus-io/swarmbus/core"
	"github.com/swarmbus-io/swarmbus/logging"
	"github.com/swarmbus-io/swarmbus/model"
	"github.com/swarmbus-io/swarmbus/orchestrator"
	"github.com/swarmbus-io/swarmbus/registry"
)

// Options configure a Server.
type Options struct {
	Logger logging.Logger
	// Model backs agents created through the API with type "model". When
	// nil such requests are rejected.
	Model model.Model
}

// Server routes HTTP requests to a System.
type Server struct {
	system *swarmbus.System
	model  model.Model
	logger logging.Logger

	router   chi.Router
	upgrader websocket.Upgrader
}

// New constructs a server around the given system.
func New(system *swarmbus.System, optFns ...func(o *Options)) *Server {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &Server{
		system: system,
		model:  opts.Model,
		logger: logging.OrNoOp(opts.Logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleEvents)

	r.Route("/api", func(r chi.Router) {
		r.Get("/agents", s.handleListAgents)
		r.Post("/agents", s.handleCreateAgent)
		r.Delete("/agents/{name}", s.handleDeleteAgent)
		r.Get("/agents/{name}/messages", s.handleDrainMessages)

		r.Post("/messages", s.handleSendMessage)
		r.Get("/messages/history", s.handleHistory)

		r.Post("/tasks", s.handleExecuteTask)
		r.Post("/orchestrate", s.handleOrchestrate)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": swarmbus.Version,
		"agents":  s.system.Registry.Len(),
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Registry.List())
}

type createAgentRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	AgentType   string `json:"agent_type"`
	Instruction string `json:"instruction"`
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg := registry.Config{
		Name:        req.Name,
		Role:        req.Role,
		Description: req.Description,
		Type:        agent.Type(req.AgentType),
	}
	if cfg.Type == agent.TypeModel {
		if s.model == nil {
			writeError(w, http.StatusBadRequest, errors.New("no model provider configured"))
			return
		}
		cfg.Model = s.model
		cfg.Instruction = req.Instruction
	}

	a, err := s.system.Registry.Create(cfg)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"name":  a.Name(),
		"role":  a.Role(),
		"type":  string(a.Type()),
		"state": string(a.State()),
	})
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.system.Registry.Remove(name); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
}

func (s *Server) handleDrainMessages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, err := s.system.Registry.Get(name)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	msgs, err := a.Messages()
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  any    `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Sender == "" {
		req.Sender = core.SystemSender
	}
	if req.Receiver == "" {
		writeError(w, http.StatusBadRequest, errors.New("receiver is required"))
		return
	}

	delivered, err := s.system.Bus.Send(core.NewMessage(req.Sender, req.Receiver, req.Content))
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Bus.History(r.URL.Query().Get("agent")))
}

type executeTaskRequest struct {
	Agent string         `json:"agent"`
	Task  string         `json:"task"`
	Tool  string         `json:"tool,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
}

func (s *Server) handleExecuteTask(w http.ResponseWriter, r *http.Request) {
	var req executeTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := s.system.Registry.Get(req.Agent)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}

	task := core.NewTask(req.Agent, req.Task)
	task.Tool = req.Tool
	task.Args = req.Args

	result, err := a.ExecuteTask(r.Context(), task)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type orchestrateRequest struct {
	Task     string              `json:"task"`
	Strategy string              `json:"strategy"`
	Steps    []orchestrator.Step `json:"steps,omitempty"`
}

// handleOrchestrate runs an explicit plan when steps are supplied, otherwise
// delegates step planning to the orchestrator's planner.
func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	var req orchestrateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	strategy := orchestrator.Strategy(req.Strategy)
	if strategy == "" {
		strategy = orchestrator.StrategyAuto
	}

	var (
		result *orchestrator.Result
		err    error
	)
	if len(req.Steps) > 0 {
		result, err = s.system.Orchestrator.RunPlan(r.Context(),
			orchestrator.NewPlan(req.Task, strategy, req.Steps...))
	} else {
		result, err = s.system.Orchestrator.Run(r.Context(), req.Task, strategy)
	}
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleEvents upgrades the connection and streams engine events as JSON
// frames until the client disconnects or the publisher closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("server.ws.upgrade", "error", err.Error())
		return
	}
	defer conn.Close()

	sub := s.system.Events.Subscribe()
	defer sub.Close()

	// Reader goroutine: the client never sends data, but reading is the
	// only way to observe close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// statusFor maps engine sentinel errors onto HTTP status codes.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, core.ErrDuplicateName),
		errors.Is(err, core.ErrAgentBusy),
		errors.Is(err, core.ErrNoEligibleAgents):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnknownAgent),
		errors.Is(err, core.ErrUnknownRecipient),
		errors.Is(err, core.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyTask):
		return http.StatusBadRequest
	default:
		return fallback
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
