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
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/sieve/repository"
)

const (
	HeaderRequestID = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxLogger    = "logger"
	ctxScope     = "scope"
)

// Claims are the bearer token claims. company_id selects the tenant and
// user_id the actor stamped on writes.
type Claims struct {
	TenantID *int64 `json:"company_id,omitempty"`
	UserID   *int64 `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for tenant and actor, valid for ttl.
func IssueToken(secret []byte, tenantID, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: &tenantID,
		UserID:   &userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates an HMAC signed token and returns its claims.
func ParseToken(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// RequestIDMiddleware keeps the caller's X-Request-ID or assigns a new one,
// and stores a logger entry carrying it.
func (s *Server) RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request().Header.Set(HeaderRequestID, requestID)
		}
		c.Response().Header().Set(HeaderRequestID, requestID)
		c.Set(ctxRequestID, requestID)
		c.Set(ctxLogger, s.log.WithField(ctxRequestID, requestID))
		return next(c)
	}
}

// AccessLogMiddleware logs one line per request.
func (s *Server) AccessLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		entry := loggerFrom(c, s.log).WithFields(logrus.Fields{
			"req_method":   c.Request().Method,
			"req_uri":      c.Request().RequestURI,
			"status_code":  c.Response().Status,
			"latency_time": time.Since(start).String(),
		})
		if c.Response().Status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request served")
		}
		return nil
	}
}

// AuthMiddleware turns the bearer token into the request Scope. Without a
// token the request is rejected unless anonymous access is enabled, in
// which case it runs with an empty scope.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := loggerFrom(c, s.log)

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if s.allowAnonymous {
				c.Set(ctxScope, repository.Scope{})
				return next(c)
			}
			log.Warn("Missing Authorization header")
			return sendError(c, "missing authorization token", http.StatusUnauthorized)
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			log.Warn("Invalid Authorization header format")
			return sendError(c, "invalid authorization format, expected Bearer token", http.StatusUnauthorized)
		}

		claims, err := ParseToken(s.secret, strings.TrimSpace(token))
		if err != nil {
			log.WithError(err).Warn("Invalid JWT token")
			return sendError(c, "invalid or expired token", http.StatusUnauthorized)
		}
		if claims.TenantID == nil {
			log.Warn("JWT token does not contain company_id")
			return sendError(c, "company_id is required in the token", http.StatusBadRequest)
		}

		c.Set(ctxScope, repository.Scope{TenantID: claims.TenantID, ActorID: claims.UserID})
		return next(c)
	}
}

func scopeFrom(c echo.Context) (repository.Scope, error) {
	scope, ok := c.Get(ctxScope).(repository.Scope)
	if !ok {
		return repository.Scope{}, errors.New("request scope missing")
	}
	return scope, nil
}

func loggerFrom(c echo.Context, fallback *logrus.Logger) *logrus.Entry {
	if entry, ok := c.Get(ctxLogger).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(fallback)
}

func describeScope(scope repository.Scope) string {
	if scope.TenantID == nil {
		return "all"
	}
	return fmt.Sprint(*scope.TenantID)
}
