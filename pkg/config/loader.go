// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// configNames are probed in order inside the store directory
var configNames = []string{"config.yaml", "config.yml", "config.json", "config.hcl", "config.toml"}

// 🎯 Load builds the configuration for the project at root. The first config file
// found in the store directory wins; without one the defaults are used.
func Load(ctx context.Context, root, storeDir string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	if storeDir == "" {
		storeDir = DefaultStoreDir
	}

	for _, name := range configNames {
		path := filepath.Join(root, storeDir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Errorf("checking config file %s: %w", name, err)
		}

		cfg, err := LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		cfg.ProjectRoot = root
		cfg.StoreDir = storeDir
		if err := cfg.Validate(); err != nil {
			return nil, errors.Errorf("validating config %s: %w", name, err)
		}
		logger.Debug().Str("path", path).Msg("loaded configuration")
		return cfg, nil
	}

	logger.Debug().Str("root", root).Msg("no config file found, using defaults")
	cfg := &Config{ProjectRoot: root, StoreDir: storeDir}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating default config: %w", err)
	}
	return cfg, nil
}

// 📖 LoadFile parses a single config file, picking the parser by extension.
// The result is not validated; Load does that once the root is known.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", filepath.Base(path))
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path
	return cfg, nil
}

// 💾 WriteDefault writes a YAML config with the default values, leaving an existing file alone.
// It reports whether a file was written.
func WriteDefault(ctx context.Context, cfg *Config) (bool, error) {
	path := filepath.Join(cfg.StorePath(), configNames[0])
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return false, errors.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, errors.Errorf("creating store directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, errors.Errorf("writing config file: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("wrote default configuration")
	return true, nil
}

// 🔎 FindProjectRoot walks up from start looking for a directory that holds storeDir.
// When none is found start itself is returned with found=false.
func FindProjectRoot(start, storeDir string) (root string, found bool, err error) {
	if storeDir == "" {
		storeDir = DefaultStoreDir
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", false, errors.Errorf("resolving %s: %w", start, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	for dir := abs; ; {
		info, err := os.Stat(filepath.Join(dir, storeDir))
		if err == nil && info.IsDir() {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return abs, false, nil
}
