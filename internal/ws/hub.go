package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/cuongbtq/screening-queue/internal/notify"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
)

// Queue is the part of the queue engine used by websocket sessions
type Queue interface {
	Enqueue(ctx context.Context, data domain.StudentData) (*domain.JobInfo, error)
	Dequeue(ctx context.Context, email string) (bool, error)
	GetWithPosition(ctx context.Context, email string) (*domain.JobInfo, error)
	ListWithPositions(ctx context.Context) ([]domain.JobInfo, error)
}

// Config holds hub configuration
type Config struct {
	Queue          Queue
	Logger         *slog.Logger
	WriteTimeout   time.Duration
	ReadLimit      int64
	OriginPatterns []string
}

type role int

const (
	roleNone role = iota
	roleStudent
	roleScreener
)

type session struct {
	id    string
	conn  *websocket.Conn
	role  role
	email string
}

// Hub tracks websocket sessions. Students join the room of their email,
// screeners are only counted.
type Hub struct {
	queue          Queue
	logger         *slog.Logger
	writeTimeout   time.Duration
	readLimit      int64
	originPatterns []string

	mu        sync.RWMutex
	rooms     map[string]map[*session]struct{}
	screeners map[*session]string
}

// NewHub creates a new websocket hub
func NewHub(cfg *Config) *Hub {
	h := &Hub{
		queue:          cfg.Queue,
		logger:         cfg.Logger,
		writeTimeout:   cfg.WriteTimeout,
		readLimit:      cfg.ReadLimit,
		originPatterns: cfg.OriginPatterns,
		rooms:          make(map[string]map[*session]struct{}),
		screeners:      make(map[*session]string),
	}

	if h.writeTimeout <= 0 {
		h.writeTimeout = 5 * time.Second
	}
	if h.readLimit <= 0 {
		h.readLimit = 32 << 10
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	return h
}

// ServeHTTP upgrades the request and runs the session until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("WebSocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "goodbye")
	conn.SetReadLimit(h.readLimit)

	s := &session{id: uuid.NewString(), conn: conn}
	h.logger.Debug("Session opened", slog.String("session", s.id))

	defer h.disconnect(s)
	h.readLoop(r.Context(), s)
}

func (h *Hub) readLoop(ctx context.Context, s *session) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.Debug("WebSocket read ended",
					slog.String("session", s.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var msg BaseMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.writeSession(ctx, s, ErrorMessage{Type: TypeError, Error: "invalid message format"})
			continue
		}

		switch msg.Type {
		case TypeLogin:
			var login LoginMessage
			if err := json.Unmarshal(data, &login); err != nil || login.Email == "" {
				h.writeSession(ctx, s, LoginResultMessage{Type: TypeLogin, Success: false})
				continue
			}
			h.loginStudent(ctx, s, login)

		case TypeLoginScreener:
			var login ScreenerLoginMessage
			if err := json.Unmarshal(data, &login); err != nil || login.Email == "" {
				h.writeSession(ctx, s, ErrorMessage{Type: TypeError, Error: "email is required"})
				continue
			}
			h.loginScreener(ctx, s, login.Email)

		case TypeLogout:
			var logout LogoutMessage
			if err := json.Unmarshal(data, &logout); err != nil || logout.Email == "" {
				continue
			}
			h.logout(ctx, logout.Email)

		default:
			h.writeSession(ctx, s, ErrorMessage{Type: TypeError, Error: "unknown message type " + msg.Type})
		}
	}
}

func (h *Hub) loginStudent(ctx context.Context, s *session, login LoginMessage) {
	h.join(s, login.Email)
	h.logger.Info("Student logged in", slog.String("email", login.Email))

	info, err := h.queue.GetWithPosition(ctx, login.Email)
	if err == nil && info == nil && login.Student != nil {
		data := *login.Student
		data.Email = login.Email
		info, err = h.queue.Enqueue(ctx, data)
		if errors.Is(err, domain.ErrDuplicateJob) {
			info, err = h.queue.GetWithPosition(ctx, login.Email)
		}
	}

	if err != nil || info == nil {
		if err != nil {
			h.logger.Warn("Could not log in student",
				slog.String("email", login.Email),
				slog.String("error", err.Error()),
			)
		}
		h.sendRoom(ctx, login.Email, LoginResultMessage{Type: TypeLogin, Success: false})
		return
	}

	h.sendRoom(ctx, login.Email, LoginResultMessage{Type: TypeLogin, Success: true, JobInfo: info})
	h.writeSession(ctx, s, UpdateScreenerMessage{Type: TypeUpdateScreener, ScreenerCount: h.ScreenerCount()})
}

func (h *Hub) loginScreener(ctx context.Context, s *session, email string) {
	h.mu.Lock()
	before := h.screenerCountLocked()
	if s.role == roleStudent {
		h.leaveLocked(s)
	}
	s.role = roleScreener
	s.email = email
	h.screeners[s] = email
	after := h.screenerCountLocked()
	h.mu.Unlock()

	h.logger.Info("Screener logged in",
		slog.String("email", email),
		slog.Int("screener_count", after),
	)

	if after != before {
		h.broadcastScreenerCount(ctx, after)
	}
}

func (h *Hub) logout(ctx context.Context, email string) {
	if _, err := h.queue.Dequeue(ctx, email); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		h.logger.Error("Could not log out student",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
	}
}

func (h *Hub) join(s *session, email string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case s.role == roleStudent && s.email != email:
		h.leaveLocked(s)
	case s.role == roleScreener:
		delete(h.screeners, s)
	}
	s.role = roleStudent
	s.email = email

	room, ok := h.rooms[email]
	if !ok {
		room = make(map[*session]struct{})
		h.rooms[email] = room
	}
	room[s] = struct{}{}
}

// leaveLocked removes a student session from its room and reports
// whether the room is now empty
func (h *Hub) leaveLocked(s *session) bool {
	room, ok := h.rooms[s.email]
	if !ok {
		return true
	}
	delete(room, s)
	if len(room) == 0 {
		delete(h.rooms, s.email)
		return true
	}
	return false
}

// disconnect cleans up after a closed session. A student whose last
// session closed leaves the queue unless the job was already reviewed.
func (h *Hub) disconnect(s *session) {
	ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
	defer cancel()

	h.mu.Lock()
	switch s.role {
	case roleStudent:
		last := h.leaveLocked(s)
		h.mu.Unlock()
		if last {
			h.dropStudent(ctx, s.email)
		}

	case roleScreener:
		before := h.screenerCountLocked()
		delete(h.screeners, s)
		after := h.screenerCountLocked()
		h.mu.Unlock()

		h.logger.Info("Screener logged out",
			slog.String("email", s.email),
			slog.Int("screener_count", after),
		)
		if after != before {
			h.broadcastScreenerCount(ctx, after)
		}

	default:
		h.mu.Unlock()
	}
}

func (h *Hub) dropStudent(ctx context.Context, email string) {
	info, err := h.queue.GetWithPosition(ctx, email)
	if err != nil {
		h.logger.Error("Could not look up disconnected student",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return
	}
	if info == nil || info.Status.Terminal() {
		return
	}

	h.logger.Info("Student disconnected, leaving queue", slog.String("email", email))
	h.logout(ctx, email)
}

// ScreenerCount returns the number of distinct screeners online
func (h *Hub) ScreenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.screenerCountLocked()
}

func (h *Hub) screenerCountLocked() int {
	emails := make(map[string]struct{}, len(h.screeners))
	for _, email := range h.screeners {
		emails[email] = struct{}{}
	}
	return len(emails)
}

func (h *Hub) broadcastScreenerCount(ctx context.Context, count int) {
	if err := notify.BroadcastScreenerCount(ctx, h.queue, h, count); err != nil {
		h.logger.Warn("Could not broadcast screener count",
			slog.Int("screener_count", count),
			slog.String("error", err.Error()),
		)
	}
}

// UpdateJob pushes the job state to every session of a student
func (h *Hub) UpdateJob(ctx context.Context, email string, info *domain.JobInfo) error {
	return h.sendRoom(ctx, email, UpdateJobMessage{Type: TypeUpdateJob, JobInfo: info})
}

// RemovedJob tells every session of a student that the job left the queue
func (h *Hub) RemovedJob(ctx context.Context, email string) error {
	return h.sendRoom(ctx, email, RemovedJobMessage{Type: TypeRemovedJob, Email: email})
}

// UpdateScreener pushes the number of screeners online to a student
func (h *Hub) UpdateScreener(ctx context.Context, email string, screenerCount int) error {
	return h.sendRoom(ctx, email, UpdateScreenerMessage{Type: TypeUpdateScreener, ScreenerCount: screenerCount})
}

// sendRoom writes to every session in a room. An empty room is not an error.
func (h *Hub) sendRoom(ctx context.Context, email string, msg any) error {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.rooms[email]))
	for s := range h.rooms[email] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		errs = append(errs, h.writeSession(ctx, s, msg))
	}
	return errors.Join(errs...)
}

func (h *Hub) writeSession(ctx context.Context, s *session, msg any) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		h.logger.Debug("WebSocket write failed",
			slog.String("session", s.id),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
