/*
Copyright © 2024 Meetinity

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
package cmd

import (
	"fmt"
	"os"

	log "github.com/jensneuse/abstractlogger"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/decarvalhoe/meetinity/pkg/config"
	"github.com/decarvalhoe/meetinity/pkg/federation"
	"github.com/decarvalhoe/meetinity/pkg/httpclient"
)

var (
	cfgFile string
	debug   bool

	v = config.NewViper()
)

var errFederationDisabled = errors.New("GraphQL federation is disabled; nothing to publish")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meetinity-gateway",
	Short: "meetinity-gateway composes and publishes the federated GraphQL contract of the API gateway",
	Long: `meetinity-gateway composes the schemas of the Meetinity subgraphs into a supergraph,
publishes the versioned artifact together with a JSON manifest and serves both next to the
GraphQL router proxy.

Configuration is read from GRAPHQL_*, PROXY_* and GATEWAY_* environment variables and an optional config file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.meetinity-gateway.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enables debug logging")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		v.AddConfigPath(home)
		v.SetConfigName(".meetinity-gateway")
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logger() log.Logger {
	var (
		zapLogger *zap.Logger
		err       error
	)
	if debug {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return log.NoopLogger
	}
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewZapLogger(zapLogger, level)
}

func loadConfig() (*config.Config, error) {
	return config.Load(v, afero.NewOsFs())
}

// newGateway builds the federation gateway of cfg. It fails with errFederationDisabled
// when federation is turned off.
func newGateway(cfg *config.Config, opts ...federation.Option) (*federation.Gateway, error) {
	if !cfg.FederationEnabled {
		return nil, errFederationDisabled
	}
	opts = append([]federation.Option{
		federation.WithHTTPClient(httpclient.New(cfg.SchemaConnectTimeout, cfg.SchemaReadTimeout)),
	}, opts...)
	return federation.NewGateway(cfg.Subgraphs, cfg.SupergraphDir, cfg.ContractDir, opts...)
}
