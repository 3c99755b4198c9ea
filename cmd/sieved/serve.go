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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tomoncle/sieve"
	"github.com/tomoncle/sieve/api"
	"github.com/tomoncle/sieve/cache"
	"github.com/tomoncle/sieve/database"
	"github.com/tomoncle/sieve/repository"
	"github.com/tomoncle/sieve/utils"
)

var errNoSecret = errors.New("auth.jwt_secret is required unless auth.allow_anonymous is set")

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the entity API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.AllowAnonymous {
		return errNoSecret
	}
	log := utils.GetLogger("SIEVED")

	reg, err := a.registry()
	if err != nil {
		return err
	}
	db, err := database.InitDB(ctx, cfg.ConfigLoader())
	if err != nil {
		return err
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	if cfg.Schema.ValidateOnStart {
		if err := database.ValidateDescriptors(ctx, db, reg, cfg.Schema.Concurrency); err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		log.Info("Entity descriptors match the database")
	}

	var opts []repository.Option
	if cfg.Cache.Enabled {
		opts = append(opts, repository.WithCache(cache.NewQueryCache(cache.NewMemory(), cfg.Cache.TTL)))
	}
	svc := sieve.NewService(reg, opts...)

	server, err := api.NewServer(svc,
		api.WithJWTSecret(cfg.Auth.JWTSecret),
		api.WithAnonymous(cfg.Auth.AllowAnonymous),
		api.WithMetricsPrefix(cfg.Metrics.Prefix),
	)
	if err != nil {
		return err
	}
	log.WithField("entities", len(reg.Names())).Info("Entity registry loaded")
	return server.Start(ctx, cfg.Server.Addr)
}
