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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jerry-enebeli/tlr"
	"github.com/jerry-enebeli/tlr/config"
	"github.com/jerry-enebeli/tlr/database"
	"github.com/jerry-enebeli/tlr/internal/notification"
	"github.com/jerry-enebeli/tlr/internal/okapi"
)

// TLR represents the CLI application, encapsulating the root Cobra command.
type TLR struct {
	cmd *cobra.Command
}

// tlrInstance holds the engine and its configuration for the subcommands.
type tlrInstance struct {
	tlr *tlr.TLR
	cnf *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the engine before any command runs.
func preRun(app *tlrInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newTLR, err := setupTLR(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.tlr = newTLR
		app.cnf = cnf
		return nil
	}
}

// setupTLR connects to the chain store and the tenant gateway.
func setupTLR(cfg *config.Configuration) (*tlr.TLR, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	var downstream tlr.Downstream = okapi.NewClientFromConfig(cfg)
	newTLR, err := tlr.NewTLR(db, downstream)
	if err != nil {
		return nil, fmt.Errorf("error creating tlr: %v", err)
	}
	return newTLR, nil
}

// NewCLI creates the command-line interface with the server, workers, migrate
// and config subcommands.
func NewCLI() *TLR {
	var configFile string
	t := &tlrInstance{}

	var rootCmd = &cobra.Command{
		Use:   "tlr",
		Short: "Cross-tenant title level requests for library consortia",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./tlr.json", "Configuration file for tlr")
	rootCmd.PersistentPreRunE = preRun(t, &configFile)

	rootCmd.AddCommand(serverCommands(t))
	rootCmd.AddCommand(workerCommands(t))
	rootCmd.AddCommand(migrateCommands(t))
	rootCmd.AddCommand(configCommands(t))

	return &TLR{cmd: rootCmd}
}

func (w TLR) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
