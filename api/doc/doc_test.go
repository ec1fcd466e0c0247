// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package doc

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestVersion(t *testing.T) {
	// ensure the version loaded from the yaml file meets the semver format, eg. 1.2.3
	validVersion := regexp.MustCompile(`^\d+(\.\d+){2}$`)

	assert.True(t, validVersion.Match([]byte(Version())))
}

func TestPathsDocumented(t *testing.T) {
	content, err := FS.ReadFile("feepool.yaml")
	require.NoError(t, err)

	var apiDoc struct {
		Paths map[string]map[string]any
	}
	require.NoError(t, yaml.Unmarshal(content, &apiDoc))

	for path, methods := range map[string][]string{
		"/pool":                   {"get"},
		"/pool/clock":             {"get", "post"},
		"/pool/epochs/{epoch}":    {"get"},
		"/pool/stakers/{address}": {"get"},
		"/pool/stakers/{address}/weights/{epoch}": {"get"},
		"/pool/fairshare":                         {"get"},
		"/pool/stake":                             {"post"},
		"/pool/unstake":                           {"post"},
		"/pool/claim":                             {"post"},
		"/pool/fees":                              {"post"},
		"/pool/initialize":                        {"post"},
		"/pool/harvest":                           {"post"},
		"/pool/channels":                          {"post"},
		"/pool/channels/{address}":                {"get", "put", "delete"},
		"/pool/config":                            {"put"},
		"/activities":                             {"post"},
		"/activities/{id}":                        {"get"},
		"/subscriptions/clock":                    {"get"},
	} {
		require.Contains(t, apiDoc.Paths, path)
		for _, m := range methods {
			assert.Contains(t, apiDoc.Paths[path], m, path)
		}
	}
}
