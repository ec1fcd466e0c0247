// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

// loadConfigFile sets flags from the YAML file named by --config. Keys are
// flag names; flags given on the command line are left untouched.
func loadConfigFile(ctx *cli.Context) error {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return errors.Wrap(err, "decode config file")
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == configFlag.Name {
			return fmt.Errorf("config file: %q is not allowed", name)
		}
		if ctx.IsSet(name) {
			continue
		}
		if err := ctx.Set(name, fmt.Sprint(values[name])); err != nil {
			return errors.Wrapf(err, "config file: %v", name)
		}
	}
	return nil
}
