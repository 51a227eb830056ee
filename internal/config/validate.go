// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"github.com/fabricctl/controller/internal/errors"
)

// Validate checks cfg for the structural requirements Load cannot express
// through struct tags alone: unique switch names/ids, links and hosts
// referencing declared switches, and a schema_version match.
func Validate(cfg *Config) error {
	if cfg.SchemaVersion != SchemaVersion {
		return errors.Errorf(errors.KindValidation, "unsupported config schema_version %q, want %q", cfg.SchemaVersion, SchemaVersion)
	}
	if len(cfg.Switches) == 0 {
		return errors.New(errors.KindValidation, "config declares no switches")
	}

	names := make(map[string]struct{}, len(cfg.Switches))
	ids := make(map[int]string, len(cfg.Switches))
	for _, sw := range cfg.Switches {
		if sw.Name == "" {
			return errors.New(errors.KindValidation, "switch block with empty name")
		}
		if _, dup := names[sw.Name]; dup {
			return errors.Errorf(errors.KindValidation, "duplicate switch name %q", sw.Name)
		}
		names[sw.Name] = struct{}{}

		if other, dup := ids[sw.SwitchID]; dup {
			return errors.Errorf(errors.KindValidation, "switch %q and %q share switch_id %d", sw.Name, other, sw.SwitchID)
		}
		ids[sw.SwitchID] = sw.Name

		if sw.SocketPath == "" {
			return errors.Errorf(errors.KindValidation, "switch %q missing socket_path", sw.Name)
		}
	}

	for _, l := range cfg.Links {
		if err := requireSwitch(names, l.SwitchA); err != nil {
			return err
		}
		if err := requireSwitch(names, l.SwitchB); err != nil {
			return err
		}
	}

	for _, h := range cfg.Hosts {
		if err := requireSwitch(names, h.Switch); err != nil {
			return err
		}
		if h.Name == "" {
			return errors.New(errors.KindValidation, "host block with empty name")
		}
	}

	if cfg.Schema != nil {
		if err := validateSchema(cfg.Schema); err != nil {
			return err
		}
	}

	return nil
}

func requireSwitch(names map[string]struct{}, sw string) error {
	if _, ok := names[sw]; !ok {
		return errors.Errorf(errors.KindValidation, "reference to undeclared switch %q", sw)
	}
	return nil
}

func validateSchema(s *SchemaConfig) error {
	tableNames := make(map[string]struct{}, len(s.Tables))
	for _, t := range s.Tables {
		if _, dup := tableNames[t.Name]; dup {
			return errors.Errorf(errors.KindValidation, "duplicate schema table %q", t.Name)
		}
		tableNames[t.Name] = struct{}{}

		for _, f := range t.Fields {
			switch f.Match {
			case "exact", "lpm", "ternary", "range":
			default:
				return errors.Errorf(errors.KindValidation, "table %q field %q: unknown match kind %q", t.Name, f.Name, f.Match)
			}
		}
	}

	actionNames := make(map[string]struct{}, len(s.Actions))
	for _, a := range s.Actions {
		if _, dup := actionNames[a.Name]; dup {
			return errors.Errorf(errors.KindValidation, "duplicate schema action %q", a.Name)
		}
		actionNames[a.Name] = struct{}{}
	}

	return nil
}
