// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command arrow-odbc-export runs a query against MySQL and writes the result
// set as Parquet, Arrow IPC or JSON lines.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "arrow-odbc-export",
		Short:         "Export SQL result sets as Arrow",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "arrow-odbc-export v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	})

	cfg := defaultConfig()
	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query and write its result set",
		Long: `Run a query and write its result set.

Parquet output is split into parts of roughly --max-file-bytes each, written
to the --out directory. IPC and JSON lines are written to the --out file, or
to stdout if --out is "-".

Example:
  arrow-odbc-export query --dsn 'user:pw@tcp(localhost:3306)/shop' \
    --query 'SELECT * FROM orders' --format parquet --out ./orders`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cfg.bindFlags(queryCmd)
	root.AddCommand(queryCmd)

	schemaCfg := defaultConfig()
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the Arrow schema of a query without fetching rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd.Context(), schemaCfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	schemaCfg.bindFlags(schemaCmd)
	root.AddCommand(schemaCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
