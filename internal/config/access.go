package config

import (
	"errors"
	"fmt"

	"github.com/spf13/cast"
)

type AccessConfig struct {
	// Principals maps a principal identifier to its granted roles.
	Principals map[string]any `mapstructure:"principals"`
	// Capabilities maps an operation name to the roles allowed to invoke
	// it. Operations absent from the table are open to any principal.
	Capabilities map[string]any `mapstructure:"capabilities"`
}

func (cfg *AccessConfig) Validate() error {
	if len(cfg.Principals) == 0 {
		return errors.New("access principals table is required")
	}
	if _, err := cfg.PrincipalRoles(); err != nil {
		return err
	}
	if _, err := cfg.CapabilityTable(); err != nil {
		return err
	}
	return nil
}

// PrincipalRoles normalizes the principals section. Values may be YAML lists
// or space separated strings.
func (cfg *AccessConfig) PrincipalRoles() (map[string][]string, error) {
	out := make(map[string][]string, len(cfg.Principals))
	for principal, v := range cfg.Principals {
		roles, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("access principals entry %q is not a role list: %w", principal, err)
		}
		out[principal] = roles
	}
	return out, nil
}

// CapabilityTable normalizes the capabilities section.
func (cfg *AccessConfig) CapabilityTable() (map[string][]string, error) {
	out := make(map[string][]string, len(cfg.Capabilities))
	for op, v := range cfg.Capabilities {
		roles, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("access capabilities entry %q is not a role list: %w", op, err)
		}
		out[op] = roles
	}
	return out, nil
}
