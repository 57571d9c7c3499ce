// Copyright 2026 The vendorize Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings shared by every vendorize command from
// flags, the environment and an optional config file.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/vendorize/vendorize/internal/errors"
	"github.com/vendorize/vendorize/internal/gitutil"
	"github.com/vendorize/vendorize/internal/repo"
	"github.com/vendorize/vendorize/internal/types"
)

const (
	// ConfigFileEnv names the environment variable holding a config file path.
	ConfigFileEnv = "VENDORIZE_CONFIG"

	DefaultBranch = "master"

	HostsKey         = "hosts"
	DefaultBranchKey = "default-branch"
	RealNameKey      = "real-name"
	EmailAddressKey  = "email-address"
)

// DefaultAllowedHosts returns the hosts that may be referenced without
// vendoring when neither the manifest nor the command line names any.
func DefaultAllowedHosts() []string {
	return []string{
		"launchpad.net",
		"keyserver.ubuntu.com",
		"bazaar.launchpad.net",
		"git.launchpad.net",
		"api.launchpad.net",
		"api.snapcraft.io",
		"search.apps.ubuntu.com",
		"archive.ubuntu.com",
		"security.ubuntu.com",
	}
}

// Config holds the resolved settings.
type Config struct {
	Hosts         []string `mapstructure:"hosts"`
	DefaultBranch string   `mapstructure:"default-branch"`
	RealName      string   `mapstructure:"real-name"`
	EmailAddress  string   `mapstructure:"email-address"`
}

// New returns a viper instance with defaults and environment bindings in
// place. If configFile is empty, $VENDORIZE_CONFIG is used, and failing
// that vendorize.yaml is searched in the working directory and
// $HOME/.config/vendorize. A missing default config file is not an error.
func New(configFile string) (*viper.Viper, error) {
	const op errors.Op = "config.New"

	v := viper.New()
	v.SetDefault(HostsKey, DefaultAllowedHosts())
	v.SetDefault(DefaultBranchKey, DefaultBranch)

	// The identity variables predate the VENDORIZE_ prefix.
	_ = v.BindEnv(RealNameKey, "REAL_NAME")
	_ = v.BindEnv(EmailAddressKey, "EMAIL_ADDRESS")
	v.SetEnvPrefix("vendorize")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv(ConfigFileEnv)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.E(op, errors.InvalidParam, types.UniquePath(configFile), err)
		}
		return v, nil
	}

	v.SetConfigName("vendorize")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "vendorize"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.E(op, errors.InvalidParam, err)
		}
	}
	return v, nil
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	const op errors.Op = "config.Load"
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.E(op, errors.InvalidParam, err)
	}
	if c.DefaultBranch == "" {
		c.DefaultBranch = DefaultBranch
	}
	return &c, nil
}

// ResolveIdentity returns the author used for every commit of a run. The
// configured name and email win; missing values are looked up with
// `git config` in dir.
func ResolveIdentity(ctx context.Context, c *Config, dir string) (repo.Identity, error) {
	const op errors.Op = "config.ResolveIdentity"

	id := repo.Identity{Name: c.RealName, Email: c.EmailAddress}
	if id.Name == "" || id.Email == "" {
		runner, err := gitutil.NewLocalGitRunner(dir)
		if err != nil {
			return id, errors.E(op, errors.MissingIdentity, err)
		}
		if id.Name == "" {
			if id.Name, err = runner.ConfigValue(ctx, "user.name"); err != nil {
				return id, errors.E(op, errors.MissingIdentity, err)
			}
		}
		if id.Email == "" {
			if id.Email, err = runner.ConfigValue(ctx, "user.email"); err != nil {
				return id, errors.E(op, errors.MissingIdentity, err)
			}
		}
	}

	if id.Name == "" || id.Email == "" {
		return id, errors.E(op, errors.MissingIdentity,
			"set REAL_NAME and EMAIL_ADDRESS or configure git user.name and user.email")
	}
	return id, nil
}
