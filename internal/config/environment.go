package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// maxSuggestionDistance bounds how different a name may be to be suggested.
const maxSuggestionDistance = 3

// ActiveEnvironment returns the selected environment.
func (c *Config) ActiveEnvironment() (*EnvironmentConfig, error) {
	return c.LookupEnvironment(c.Environment)
}

// LookupEnvironment returns the environment with the given name.
// An unknown name fails with the closest known name as a suggestion.
func (c *Config) LookupEnvironment(name string) (*EnvironmentConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultEnvironment
	}

	if env, ok := c.Environments[name]; ok {
		return &env, nil
	}

	err := uwerr.WithDetails(uwerr.ErrUnknownEnvironment, map[string]string{"environment": name})
	if suggestion := c.closestEnvironment(name); suggestion != "" {
		err = uwerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", suggestion))
	} else {
		err = uwerr.WithSuggestion(err, "known environments: "+strings.Join(c.EnvironmentNames(), ", "))
	}
	return nil, err
}

// EnvironmentNames returns the configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) closestEnvironment(name string) string {
	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, candidate := range c.EnvironmentNames() {
		d := levenshtein.ComputeDistance(name, candidate)
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}

// Validate checks that an environment can be used to talk to the contracts.
func (e *EnvironmentConfig) Validate() error {
	var missing []string
	if e.ChainID <= 0 {
		missing = append(missing, "chain_id")
	}
	if e.RPC == "" {
		missing = append(missing, "rpc")
	}
	if e.Contracts.Presale == "" {
		missing = append(missing, "contracts.presale")
	}
	if e.Contracts.Token == "" {
		missing = append(missing, "contracts.uwealth_token")
	}
	if e.Contracts.Stablecoin == "" {
		missing = append(missing, "contracts.stablecoin")
	}
	if e.RefreshInterval <= 0 {
		missing = append(missing, "refresh_interval")
	}
	if e.BlockInterval <= 0 {
		missing = append(missing, "block_interval")
	}

	if len(missing) > 0 {
		return uwerr.WithDetails(uwerr.ErrConfigInvalid, map[string]string{
			"missing": strings.Join(missing, ","),
		})
	}
	return nil
}
