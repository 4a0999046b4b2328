package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	HTTP        *http.Server
	serviceName string
}

type Options struct {
	Addr        string
	ServiceName string
	Router      chi.Router
}

func New(opts Options) *Server {
	if opts.Router == nil {
		opts.Router = chi.NewRouter()
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           opts.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{HTTP: srv, serviceName: opts.ServiceName}
}

func (s *Server) Start(log *zap.Logger) error {
	log.Info("http server starting", zap.String("service", s.serviceName), zap.String("addr", s.HTTP.Addr))
	return s.HTTP.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTP.Shutdown(ctx)
}
