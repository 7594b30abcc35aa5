package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npeters/go-taskroom/internal/config"
	"github.com/npeters/go-taskroom/internal/database"
	"github.com/npeters/go-taskroom/internal/server"
	"github.com/npeters/go-taskroom/internal/stats"
	"github.com/teris-io/shortid"
)

type TaskRoomApp struct {
	log              *log.Logger
	db               database.TaskRoomRepository
	mux              *http.Server
	hub              *server.Hub
	dispatcher       *server.Dispatcher
	stats            stats.StatsProvider
	signingKey       []byte
	allowedOrigins   []string
	chatHistoryLimit int
	generateShortId  func() (string, error)
}

func NewTaskRoomApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, dispatcher *server.Dispatcher,
	db database.TaskRoomRepository, sp stats.StatsProvider, cfg *config.Config) *TaskRoomApp {
	s := &TaskRoomApp{
		log:              logger,
		db:               db,
		hub:              hub,
		dispatcher:       dispatcher,
		stats:            sp,
		signingKey:       cfg.SigningKey,
		allowedOrigins:   cfg.AllowedOrigins,
		chatHistoryLimit: cfg.ChatHistoryLimit,
		generateShortId:  shortid.Generate,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/users", s.authMiddleware(s.listUsers))
	mux.Handle("POST /api/tasks", s.authMiddleware(s.createTask))
	mux.Handle("GET /api/tasks", s.authMiddleware(s.listTasks))
	mux.Handle("POST /api/reports", s.authMiddleware(s.createReport))
	mux.Handle("GET /api/reports", s.authMiddleware(s.listReports))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *TaskRoomApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *TaskRoomApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
