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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomoncle/sieve/database"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check entity descriptors against the live database",
		Long: `Check loads the descriptor file, connects to the configured database and
verifies that every declared table and column exists. It exits non-zero on
any mismatch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			database.EnableSqlSilent(true)
			defer database.EnableSqlSilent(false)

			db, err := database.InitDB(cmd.Context(), a.cfg.ConfigLoader())
			if err != nil {
				return err
			}
			defer func() { _ = database.CloseDB() }()

			if err := database.ValidateDescriptors(cmd.Context(), db, reg, a.cfg.Schema.Concurrency); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entities match the database\n", len(reg.Names()))
			return nil
		},
	}
}
