package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatpanel/internal/backend"
	"chatpanel/internal/blobstore"
	"chatpanel/internal/conversation"
	"chatpanel/internal/models"
	"chatpanel/internal/session"
	"chatpanel/static"
)

type Server struct {
	server  *http.Server
	store   *conversation.Store
	session *session.Session
	backend *backend.Client
	blobs   *blobstore.Store
	hub     *Hub
	log     zerolog.Logger
	wg      sync.WaitGroup

	upgrader websocket.Upgrader
}

func NewServer(
	store *conversation.Store,
	sess *session.Session,
	client *backend.Client,
	blobs *blobstore.Store,
	hub *Hub,
	addr string,
	log zerolog.Logger,
) *Server {
	s := &Server{
		store:   store,
		session: sess,
		backend: client,
		blobs:   blobs,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			// The viewer binds to localhost; same-machine pages only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServerFS(static.Content))

	mux.HandleFunc("GET /api/conversation", s.conversationHandler)
	mux.HandleFunc("POST /api/send", s.sendHandler)
	mux.HandleFunc("POST /api/stop", s.stopHandler)
	mux.HandleFunc("POST /api/reset", s.resetHandler)
	mux.HandleFunc("GET /api/files/{id}", s.fileHandler)
	mux.HandleFunc("/api/events", s.eventsHandler)

	// Prompt designer passthrough
	mux.HandleFunc("GET /api/prompt", s.getPromptHandler)
	mux.HandleFunc("POST /api/save-prompt", s.savePromptHandler)
	mux.HandleFunc("GET /api/subprompts", s.subpromptsHandler)
	mux.HandleFunc("POST /api/create-subprompt", s.createSubpromptHandler)
	mux.HandleFunc("DELETE /api/delete-subprompt", s.deleteSubpromptHandler)

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("viewer started")
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}

// Notify implements the reconciler's notifier: backend errors become
// transient notices on the push channel.
func (s *Server) Notify(text string) {
	s.hub.Broadcast(Frame{Type: "notice", Notice: text, Waiting: s.session.IsWaiting()})
}

// PushState broadcasts the current conversation to all viewers. It is
// wired as the store's change callback.
func (s *Server) PushState() {
	s.hub.Broadcast(s.stateFrame(true))
}

func (s *Server) stateFrame(includeInternal bool) Frame {
	msgs := s.store.Messages()
	if !includeInternal {
		visible := msgs[:0]
		for _, m := range msgs {
			if !m.IsInternal {
				visible = append(visible, m)
			}
		}
		msgs = visible
	}
	return Frame{
		Type:     "conversation",
		ThreadID: s.store.ThreadID(),
		Messages: msgs,
		Waiting:  s.session.IsWaiting(),
	}
}

func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	includeInternal := r.URL.Query().Get("internal") != "false"
	writeJSON(w, s.stateFrame(includeInternal), s.log)
}

func (s *Server) sendHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "Empty message", http.StatusBadRequest)
		return
	}

	out, err := s.session.StartSend(req.Text)
	if errors.Is(err, session.ErrBusy) {
		http.Error(w, "A request is already outstanding", http.StatusConflict)
		return
	}

	if err := s.backend.SendMessage(r.Context(), out); err != nil {
		s.session.FailSend()
		s.log.Error().Err(err).Msg("send failed")
		http.Error(w, "Backend unreachable", http.StatusBadGateway)
		return
	}
	s.session.ConfirmSend()
	s.PushState()

	w.WriteHeader(http.StatusOK)
}

func (s *Server) stopHandler(w http.ResponseWriter, _ *http.Request) {
	s.session.Stop()
	s.PushState()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) resetHandler(w http.ResponseWriter, _ *http.Request) {
	s.session.Reset()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	msg, ok := s.store.Find(func(m *models.Message) bool {
		return m.File != nil && m.File.BlobID == id
	})
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	blob, err := s.blobs.Open(id)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer func() { _ = blob.Close() }()

	w.Header().Set("Content-Type", msg.File.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+msg.File.Filename+`"`)
	if _, err := io.Copy(w, blob); err != nil {
		s.log.Error().Err(err).Str("blobId", id).Msg("failed to stream attachment")
	}
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("viewer upgrade failed")
		return
	}

	id, frames := s.hub.Register()
	defer s.hub.Unregister(id)
	defer func() { _ = conn.Close() }()

	// Reader only detects the browser going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Unregister(id)
				return
			}
		}
	}()

	// New viewers get the full current state first.
	if err := conn.WriteJSON(s.stateFrame(true)); err != nil {
		return
	}
	for frame := range frames {
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func (s *Server) getPromptHandler(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.backend.GetPrompt(r.Context(), r.URL.Query().Get("prompt_type"), r.URL.Query().Get("prompt_name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"prompt": prompt}, s.log)
}

func (s *Server) savePromptHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PromptType    string `json:"prompt_type"`
		PromptName    string `json:"prompt_name"`
		PromptContent string `json:"prompt_content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.backend.SavePrompt(r.Context(), req.PromptType, req.PromptName, req.PromptContent); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) subpromptsHandler(w http.ResponseWriter, r *http.Request) {
	prompts, err := s.backend.ListSubprompts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string][]string{"prompts": prompts}, s.log)
}

func (s *Server) createSubpromptHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.CreateSubprompt(r.Context(), r.URL.Query().Get("prompt_name")); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteSubpromptHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteSubprompt(r.Context(), r.URL.Query().Get("prompt_name")); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
