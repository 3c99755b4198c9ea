/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/sieve"
	"github.com/tomoncle/sieve/database"
	"github.com/tomoncle/sieve/utils"
)

// HealthFunc reports the database health for /healthz.
type HealthFunc func(ctx context.Context) *database.HealthStatus

// Server exposes the repositories of a Service over HTTP.
type Server struct {
	svc            sieve.Service
	log            *logrus.Logger
	secret         []byte
	allowAnonymous bool
	metricsPrefix  string
	registerer     prometheus.Registerer
	gatherer       prometheus.Gatherer
	health         HealthFunc
	metrics        *HTTPMetrics
}

// Option configures a Server.
type Option func(*Server)

func WithJWTSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithAnonymous lets requests without a token run unscoped.
func WithAnonymous(allow bool) Option {
	return func(s *Server) { s.allowAnonymous = allow }
}

// WithRegistry registers and serves metrics on reg instead of the default
// prometheus registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

func WithMetricsPrefix(prefix string) Option {
	return func(s *Server) { s.metricsPrefix = prefix }
}

func WithHealth(fn HealthFunc) Option {
	return func(s *Server) { s.health = fn }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer builds a server over svc and registers its HTTP metrics.
func NewServer(svc sieve.Service, opts ...Option) (*Server, error) {
	s := &Server{
		svc:           svc,
		metricsPrefix: "sieve",
		registerer:    prometheus.DefaultRegisterer,
		gatherer:      prometheus.DefaultGatherer,
		health:        database.GetHealthStatus,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = utils.GetLogger("API")
	}
	metrics, err := NewHTTPMetrics(s.metricsPrefix, s.registerer)
	if err != nil {
		return nil, err
	}
	s.metrics = metrics
	return s, nil
}

// Echo returns an echo instance with middleware and every route mounted.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(s.RequestIDMiddleware)
	e.Use(s.metrics.Middleware)
	e.Use(s.AccessLogMiddleware)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	e.GET("/healthz", s.Health)

	g := e.Group("/api", s.AuthMiddleware)
	g.GET("/models", s.Models)
	g.POST("/cache/flush", s.FlushCache)
	g.GET("/:entity", s.Index)
	g.GET("/:entity/search", s.Search)
	g.GET("/:entity/:id", s.Show)
	g.POST("/:entity", s.Store)
	g.PUT("/:entity/:id", s.Update)
	g.DELETE("/:entity/:id", s.Destroy)
	g.PATCH("/:entity/:id/toggle", s.Toggle)
	return e
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	e := s.Echo()
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Starting HTTP server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		return e.Shutdown(context.Background())
	}
}

func (s *Server) Health(c echo.Context) error {
	status := s.health(c.Request().Context())
	code := http.StatusOK
	if status == nil || !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
