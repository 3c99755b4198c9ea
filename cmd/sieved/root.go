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
	"github.com/spf13/cobra"
	"github.com/tomoncle/sieve/config"
	"github.com/tomoncle/sieve/schema"
	"github.com/tomoncle/sieve/utils"
)

// app carries what every subcommand needs after the root has loaded the
// configuration.
type app struct {
	configFile string
	schemaFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sieved",
		Short: "Multi-tenant repository and dynamic query server",
		Long: `sieved serves CRUD, filtering and search over entities described in a
YAML descriptor file, scoped by the tenant of the caller's bearer token.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./sieve.yaml)")
	root.PersistentFlags().StringVar(&a.schemaFile, "schema", "", "entity descriptor file, overrides schema.file")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newTokenCmd(a))
	root.AddCommand(newSchemaCmd(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.schemaFile != "" {
		cfg.Schema.File = a.schemaFile
	}
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	utils.ConfigureLogLevel(cfg.Log.Level)
	a.cfg = cfg
	return nil
}

func (a *app) registry() (*schema.Registry, error) {
	return schema.LoadFile(a.cfg.Schema.File)
}
