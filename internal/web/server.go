package web

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ai-interviewer/interviewer/internal/auth"
	"github.com/ai-interviewer/interviewer/internal/callsession"
	"github.com/ai-interviewer/interviewer/internal/store"
)

// Authenticator is the session layer the HTTP surface relies on.
type Authenticator interface {
	SignUp(ctx context.Context, p auth.SignUpParams) auth.Result
	SignIn(ctx context.Context, p auth.SignInParams) (auth.Result, string)
	SignOut(ctx context.Context, cookie string)
	CurrentUser(ctx context.Context, cookie string) (*store.User, error)
}

// InterviewStore serves the interview listings.
type InterviewStore interface {
	InterviewsByUser(ctx context.Context, userID string) ([]store.Interview, error)
	LatestInterviews(ctx context.Context, p store.LatestParams) ([]store.Interview, error)
}

// CallAgent is a voice agent connection owned by one call socket.
type CallAgent interface {
	callsession.VoiceAgent
	Close() error
}

// AgentFactory returns a fresh, unconnected voice agent for each call.
type AgentFactory func() CallAgent

type Config struct {
	IsProduction   bool
	WorkflowID     string
	AllowedOrigins []string
	// CommandTimeout bounds each start/end command sent to the voice agent.
	CommandTimeout time.Duration
	// LogWriter receives request logs; defaults to stderr.
	LogWriter io.Writer
}

type Server struct {
	cfg        Config
	auth       Authenticator
	interviews InterviewStore
	newAgent   AgentFactory
	calls      *callsession.Registry
	upgrader   websocket.Upgrader
	engine     *gin.Engine

	viewsMu sync.Mutex
	views   map[*callView]struct{}
	viewsWG sync.WaitGroup
	closing bool
}

func NewServer(cfg Config, a Authenticator, interviews InterviewStore, newAgent AgentFactory) *Server {
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 15 * time.Second
	}
	if cfg.LogWriter == nil {
		cfg.LogWriter = os.Stderr
	}
	registerJSONFieldNames()

	s := &Server{
		cfg:        cfg,
		auth:       a,
		interviews: interviews,
		newAgent:   newAgent,
		calls:      callsession.NewRegistry(),
		views:      make(map[*callView]struct{}),
	}
	if len(cfg.AllowedOrigins) > 0 {
		s.upgrader.CheckOrigin = originChecker(cfg.AllowedOrigins)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Calls exposes the live call registry.
func (s *Server) Calls() *callsession.Registry {
	return s.calls
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.cfg.LogWriter, "/healthz"), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth views bounce signed-in users home.
	guest := r.Group("/", s.guestOnly)
	guest.GET("/sign-in", s.handleAuthPage("sign-in"))
	guest.GET("/sign-up", s.handleAuthPage("sign-up"))

	// Root views require a session and bounce to sign-in otherwise.
	pages := r.Group("/", s.requireUser(redirectTo("/sign-in")))
	pages.GET("/", s.handleHome)
	pages.GET("/interview/call", s.handleCall)

	api := r.Group("/api")
	api.POST("/auth/sign-up", s.handleSignUp)
	api.POST("/auth/sign-in", s.handleSignIn)
	api.POST("/auth/sign-out", s.handleSignOut)

	authed := api.Group("/", s.requireUser(unauthorized))
	authed.GET("/interviews", s.handleInterviews)
	authed.GET("/interviews/latest", s.handleLatestInterviews)

	return r
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}
