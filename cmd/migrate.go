/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Migration commands for the chain store. Every chain lives in tlr.ecs_tlr,
// indexed by each leg's request id and by item id.

package main

import (
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/tlr"
	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/database"
)

const chainSchema = "tlr"

// migrationSource reads the chain schema migrations bundled into the binary.
func migrationSource() *migrate.EmbedFileSystemMigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: tlr.SQLFiles,
		Root:       "sql",
	}
}

func migrateCommands(_ *tlrInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "manage the chain store schema",
	}
	cmd.AddCommand(migrateUpCommands())
	cmd.AddCommand(migrateDownCommands())
	return cmd
}

func migrateUpCommands() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "create or upgrade the ecs_tlr table and its leg indexes",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := runMigrations(migrate.Up, 0)
			if err != nil {
				logrus.Errorf("migrating chain store up: %v", err)
				return
			}
			fmt.Printf("Applied %d migrations!\n", n)
		},
	}
}

func migrateDownCommands() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "roll back chain store migrations, dropping stored chains",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := runMigrations(migrate.Down, steps)
			if err != nil {
				logrus.Errorf("migrating chain store down: %v", err)
				return
			}
			fmt.Printf("Rolled back %d migrations!\n", n)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back (0 rolls back all)")
	return cmd
}

// runMigrations applies at most limit migrations in direction, all of them when
// limit is 0.
func runMigrations(direction migrate.MigrationDirection, limit int) (int, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return 0, err
	}
	db, err := database.ConnectDB(cnf.DataSource.Dns)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	migrate.SetSchema(chainSchema)
	return migrate.ExecMax(db, "postgres", migrationSource(), direction, limit)
}
