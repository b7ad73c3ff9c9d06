package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/stubd/internal/matching"
	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/files"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/proxy"
	"github.com/getmockd/stubd/pkg/requestlog"
	"github.com/getmockd/stubd/pkg/stub"
	stubtls "github.com/getmockd/stubd/pkg/tls"
)

// ProxyAllPriority places the proxy-all mapping behind every default-priority
// mapping.
const ProxyAllPriority = 10

// shutdownTimeout bounds graceful shutdown of the listeners.
const shutdownTimeout = 5 * time.Second

// ErrAlreadyStarted is returned by a second call to Run.
var ErrAlreadyStarted = errors.New("server has already been started")

// Server wires the stub engine to HTTP listeners and the admin API.
type Server struct {
	cfg      *config.ServerConfiguration
	stubs    *StubMappings
	settings *GlobalSettingsHolder
	journal  requestlog.Store
	renderer *Renderer
	handler  *Handler
	admin    *Admin
	router   *mux.Router
	log      *slog.Logger

	rendererOpts []RendererOption

	mu          sync.Mutex
	httpServer  *http.Server
	httpsServer *http.Server
	httpAddr    string
	httpsAddr   string
	ready       chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server and its parts.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithJournal replaces the journal selected by the configuration.
func WithJournal(j requestlog.Store) ServerOption {
	return func(s *Server) {
		if j != nil {
			s.journal = j
		}
	}
}

// WithRendererOptions adds renderer options applied after the configured
// defaults, e.g. a console notifier or a test sleeper.
func WithRendererOptions(opts ...RendererOption) ServerOption {
	return func(s *Server) {
		s.rendererOpts = append(s.rendererOpts, opts...)
	}
}

// NewServer creates a server for cfg. Mappings are not loaded until
// LoadMappings is called.
func NewServer(cfg *config.ServerConfiguration, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:   cfg,
		log:   logging.Nop(),
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.journal == nil {
		if cfg.DisableRequestJournal {
			s.journal = requestlog.Disabled{}
		} else {
			s.journal = requestlog.NewMemoryStore(cfg.MaxJournalEntries)
		}
	}

	p, err := proxy.New(proxy.Options{
		PreserveHostHeader: cfg.PreserveHostHeader,
		ProxyVia:           cfg.ProxyVia,
		Logger:             s.log.With("component", "proxy"),
	})
	if err != nil {
		return nil, err
	}

	s.settings = NewGlobalSettingsHolder(Settings{FixedDelay: cfg.FixedDelay()})
	s.stubs = NewStubMappings(WithStubLogger(s.log.With("component", "stubs")))

	rendererOpts := append([]RendererOption{
		WithSettings(s.settings),
		WithFileSource(files.NewSource(cfg.FilesDir())),
		WithProxyRenderer(p),
		WithNotifier(logging.NewSlogNotifier(s.log.With("component", "renderer"))),
	}, s.rendererOpts...)
	s.renderer = NewRenderer(rendererOpts...)

	s.handler = NewHandler(s.stubs, s.renderer, s.journal)
	s.handler.SetLogger(s.log.With("component", "handler"))
	s.handler.SetMaxBodySize(cfg.MaxBodySize)

	s.admin = NewAdmin(s.stubs, s.settings, s.journal)
	s.admin.SetLogger(s.log.With("component", "admin"))
	s.admin.SetReloader(func() error {
		_, err := s.LoadMappings()
		return err
	})

	s.router = mux.NewRouter()
	s.admin.Register(s.router)
	s.router.PathPrefix("/").Handler(s.handler)

	return s, nil
}

// Stubs returns the mapping store.
func (s *Server) Stubs() *StubMappings { return s.stubs }

// Journal returns the request journal.
func (s *Server) Journal() requestlog.Store { return s.journal }

// Settings returns the global settings holder.
func (s *Server) Settings() *GlobalSettingsHolder { return s.settings }

// Handler returns the combined admin and stub handler.
func (s *Server) Handler() http.Handler { return s.router }

// LoadMappings registers the mapping files and, when configured, the
// proxy-all mapping. Files that fail to load are reported in the result and
// skipped.
func (s *Server) LoadMappings() (*config.LoadResult, error) {
	loader := &config.MappingLoader{Dir: s.cfg.MappingsDir(), Globs: s.cfg.Mappings}
	result, err := loader.Load()
	if err != nil {
		return nil, err
	}

	for _, le := range result.Errors {
		s.log.Warn("skipping mapping file", "path", le.Path, "error", le.Error())
	}
	for _, m := range result.Mappings {
		if err := s.stubs.Register(m); err != nil {
			return result, fmt.Errorf("registering mapping %s: %w", m.ID, err)
		}
	}

	if s.cfg.ProxyAll != "" {
		m := stub.New(matching.AnyRequest(), &stub.ResponseDefinition{ProxyBaseURL: s.cfg.ProxyAll}).
			WithPriority(ProxyAllPriority)
		m.Name = "proxy-all"
		if err := s.stubs.Register(m); err != nil {
			return result, fmt.Errorf("registering proxy-all mapping: %w", err)
		}
	}

	s.log.Info("mappings loaded", "files", len(result.Files), "mappings", s.stubs.Count(), "errors", len(result.Errors))
	return result, nil
}

func (s *Server) reload() {
	s.stubs.Reset()
	if _, err := s.LoadMappings(); err != nil {
		s.log.Error("failed to reload mappings", "error", err)
	}
}

// Ready is closed once the listeners are bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound HTTP address, or "" before Ready.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// HTTPSAddr returns the bound HTTPS address, or "" when HTTPS is off.
func (s *Server) HTTPSAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpsAddr
}

// Run serves until ctx is cancelled or a listener fails, then shuts down
// gracefully. A server runs at most once. With Watch set, mapping file changes reload the mappings.
func (s *Server) Run(ctx context.Context) error {
	httpLn, httpsLn, err := s.listen()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(s.httpServer, httpLn) })
	if httpsLn != nil {
		g.Go(func() error { return serve(s.httpsServer, httpsLn) })
	}
	if s.cfg.Watch {
		if info, err := os.Stat(s.cfg.MappingsDir()); err == nil && info.IsDir() {
			w := config.NewWatcher(s.cfg.MappingsDir(), s.reload)
			w.SetLogger(s.log.With("component", "watcher"))
			g.Go(func() error { return w.Run(gctx) })
		} else {
			s.log.Warn("not watching mappings: directory missing", "dir", s.cfg.MappingsDir())
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.shutdown(shutdownCtx)
	})

	s.log.Info("stub server started", "http", s.Addr(), "https", s.HTTPSAddr())
	return g.Wait()
}

func (s *Server) listen() (net.Listener, net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return nil, nil, ErrAlreadyStarted
	}

	httpLn, err := net.Listen("tcp", s.cfg.HTTPAddr())
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", s.cfg.HTTPAddr(), err)
	}
	s.httpAddr = httpLn.Addr().String()

	var httpsLn net.Listener
	if s.cfg.HTTPSEnabled() {
		tlsCfg, generated, err := stubtls.ServerConfig(s.cfg.TLSCertFile, s.cfg.TLSKeyFile, nil)
		if err != nil {
			_ = httpLn.Close()
			return nil, nil, err
		}
		if generated != nil {
			s.log.Info("generated self-signed certificate", "subject", generated.Certificate.Subject.CommonName,
				"expires", generated.Certificate.NotAfter)
		}
		ln, err := net.Listen("tcp", s.cfg.HTTPSAddr())
		if err != nil {
			_ = httpLn.Close()
			return nil, nil, fmt.Errorf("listening on %s: %w", s.cfg.HTTPSAddr(), err)
		}
		s.httpsServer = s.newHTTPServer(tlsCfg)
		s.httpsAddr = ln.Addr().String()
		httpsLn = tls.NewListener(ln, tlsCfg)
	}

	s.httpServer = s.newHTTPServer(nil)
	close(s.ready)
	return httpLn, httpsLn, nil
}

func (s *Server) newHTTPServer(tlsCfg *tls.Config) *http.Server {
	return &http.Server{
		Handler:           s.router,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: time.Duration(s.cfg.ReadTimeout) * time.Second,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeout) * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
}

func (s *Server) shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}
	if s.httpsServer != nil {
		if err := s.httpsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTPS shutdown: %w", err))
		}
	}
	s.log.Info("stub server stopped")
	return errors.Join(errs...)
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
