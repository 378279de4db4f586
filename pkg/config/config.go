// Package config reads the gateway configuration from the environment and an optional config file.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/decarvalhoe/meetinity/pkg/federation"
	"github.com/decarvalhoe/meetinity/pkg/httpclient"
)

const (
	KeyFederationEnabled    = "graphql.federation_enabled"
	KeyRouterURL            = "graphql.router_url"
	KeySupergraphDir        = "graphql.supergraph_dir"
	KeyContractDir          = "graphql.contract_dir"
	KeySubgraphs            = "graphql.subgraphs"
	KeySubgraphsFile        = "graphql.subgraphs_file"
	KeySchemaTimeoutConnect = "graphql.schema_timeout_connect"
	KeySchemaTimeoutRead    = "graphql.schema_timeout_read"
	KeyPollInterval         = "graphql.poll_interval"
	KeyProxyTimeoutConnect  = "proxy.timeout_connect"
	KeyProxyTimeoutRead     = "proxy.timeout_read"
	KeyProxyRoutes          = "proxy.routes"
	KeyListenAddr           = "gateway.listen_addr"
)

const (
	DefaultSupergraphDir = "var/graphql/supergraph"
	DefaultContractDir   = "var/graphql/contracts"
	DefaultListenAddr    = "0.0.0.0:8080"
)

type Config struct {
	FederationEnabled bool
	RouterURL         string
	SupergraphDir     string
	ContractDir       string
	Subgraphs         []federation.SubgraphDefinition

	SchemaConnectTimeout time.Duration
	SchemaReadTimeout    time.Duration
	// PollInterval of zero disables periodic recomposition.
	PollInterval time.Duration

	ProxyConnectTimeout time.Duration
	ProxyReadTimeout    time.Duration
	Routes              []federation.Route

	ListenAddr string
}

// NewViper returns a viper instance reading GRAPHQL_*, PROXY_* and GATEWAY_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyFederationEnabled, false)
	v.SetDefault(KeyRouterURL, "")
	v.SetDefault(KeySupergraphDir, DefaultSupergraphDir)
	v.SetDefault(KeyContractDir, DefaultContractDir)
	v.SetDefault(KeySchemaTimeoutConnect, federation.DefaultSchemaConnectTimeout.Seconds())
	v.SetDefault(KeySchemaTimeoutRead, federation.DefaultSchemaReadTimeout.Seconds())
	v.SetDefault(KeyPollInterval, "0")
	v.SetDefault(KeyProxyTimeoutConnect, httpclient.DefaultConnectTimeout.Seconds())
	v.SetDefault(KeyProxyTimeoutRead, httpclient.DefaultReadTimeout.Seconds())
	v.SetDefault(KeyListenAddr, DefaultListenAddr)
}

// Load builds the configuration from v. Subgraphs are only loaded when federation is enabled;
// a subgraphs file, when configured, replaces the subgraphs given inline.
func Load(v *viper.Viper, fs afero.Fs) (*Config, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	cfg := &Config{
		FederationEnabled: v.GetBool(KeyFederationEnabled),
		RouterURL:         strings.TrimSpace(v.GetString(KeyRouterURL)),
		ListenAddr:        v.GetString(KeyListenAddr),
	}

	var err error
	if cfg.SupergraphDir, err = expandDir(v.GetString(KeySupergraphDir)); err != nil {
		return nil, err
	}
	if cfg.ContractDir, err = expandDir(v.GetString(KeyContractDir)); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		out *time.Duration
	}{
		{KeySchemaTimeoutConnect, &cfg.SchemaConnectTimeout},
		{KeySchemaTimeoutRead, &cfg.SchemaReadTimeout},
		{KeyPollInterval, &cfg.PollInterval},
		{KeyProxyTimeoutConnect, &cfg.ProxyConnectTimeout},
		{KeyProxyTimeoutRead, &cfg.ProxyReadTimeout},
	}
	for _, d := range durations {
		if *d.out, err = ParseSeconds(v.GetString(d.key)); err != nil {
			return nil, errors.Wrapf(err, "invalid value for '%s'", d.key)
		}
	}

	if cfg.Routes, err = loadRoutes(v); err != nil {
		return nil, err
	}

	if !cfg.FederationEnabled {
		return cfg, nil
	}
	if cfg.Subgraphs, err = loadSubgraphs(v, fs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseSeconds reads a duration given either as a number of seconds ("2", "2.5")
// or in time.ParseDuration notation ("1500ms").
func ParseSeconds(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, errors.Errorf("negative duration %q", value)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", value)
	}
	if duration < 0 {
		return 0, errors.Errorf("negative duration %q", value)
	}
	return duration, nil
}

func expandDir(dir string) (string, error) {
	expanded, err := homedir.Expand(strings.TrimSpace(dir))
	if err != nil {
		return "", errors.Wrapf(err, "expand directory '%s'", dir)
	}
	return filepath.Clean(expanded), nil
}

func loadSubgraphs(v *viper.Viper, fs afero.Fs) ([]federation.SubgraphDefinition, error) {
	if file := strings.TrimSpace(v.GetString(KeySubgraphsFile)); file != "" {
		return loadSubgraphsFile(fs, file)
	}

	switch value := v.Get(KeySubgraphs).(type) {
	case string:
		if strings.TrimSpace(value) != "" {
			return federation.LoadSubgraphDefinitions([]byte(value), nil)
		}
	case []interface{}:
		raw, err := json.Marshal(jsonCompatible(value))
		if err != nil {
			return nil, errors.Wrap(err, "encode subgraph list")
		}
		return federation.LoadSubgraphDefinitions(raw, nil)
	}
	return federation.LoadSubgraphDefinitions(nil, v.AllSettings())
}

// loadSubgraphsFile reads subgraphs from a JSON or YAML document holding either the flat list
// or the nested tree, with or without the graphql.subgraphs prefix.
func loadSubgraphsFile(fs afero.Fs, file string) ([]federation.SubgraphDefinition, error) {
	path, err := homedir.Expand(file)
	if err != nil {
		return nil, errors.Wrapf(err, "expand subgraphs file '%s'", file)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read subgraphs file '%s'", path)
	}

	var document interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &document)
	default:
		err = json.Unmarshal(data, &document)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode subgraphs file '%s'", path)
	}
	document = jsonCompatible(document)

	switch value := document.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrapf(err, "encode subgraphs file '%s'", path)
		}
		return federation.LoadSubgraphDefinitions(raw, nil)
	case map[string]interface{}:
		if _, ok := lookupFold(value, "graphql"); !ok {
			value = map[string]interface{}{"graphql": map[string]interface{}{"subgraphs": value}}
		}
		return federation.LoadSubgraphDefinitions(nil, value)
	default:
		return nil, errors.Errorf("subgraphs file '%s' must hold a list or an object", path)
	}
}

func loadRoutes(v *viper.Viper) ([]federation.Route, error) {
	var routes []federation.Route
	switch value := v.Get(KeyProxyRoutes).(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(value), &routes); err != nil {
			return nil, errors.Wrapf(err, "invalid value for '%s'", KeyProxyRoutes)
		}
	default:
		if err := v.UnmarshalKey(KeyProxyRoutes, &routes); err != nil {
			return nil, errors.Wrapf(err, "invalid value for '%s'", KeyProxyRoutes)
		}
	}
	return routes, nil
}

// jsonCompatible converts the map[interface{}]interface{} values produced by yaml.v2 into
// map[string]interface{} so the document can be encoded as JSON.
func jsonCompatible(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = jsonCompatible(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = jsonCompatible(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = jsonCompatible(item)
		}
		return out
	default:
		return value
	}
}

func lookupFold(m map[string]interface{}, key string) (interface{}, bool) {
	for k, value := range m {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}
