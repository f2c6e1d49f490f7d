package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// AliasConfig maps region names as they appear in summary statistics or user
// maps to the canonical labels used by connectivity matrices.
type AliasConfig struct {
	Aliases map[string]string
}

// LoadAliases reads {dir}/aliases.ini and returns the [aliases] section.
// If the file does not exist, an empty config is returned without an error.
// Keys or values that are blank are skipped.
//
//	[aliases]
//	Left-Lateral-Ventricle = LLatVent
//	L_bankssts_thickavg    = L_bankssts
func LoadAliases(dir string) (*AliasConfig, error) {
	cfg := &AliasConfig{
		Aliases: make(map[string]string),
	}

	path := filepath.Join(dir, "aliases.ini")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return cfg, err
	}

	for _, key := range f.Section("aliases").Keys() {
		alias := strings.TrimSpace(key.Name())
		target := strings.TrimSpace(key.String())
		if alias == "" || target == "" {
			continue
		}
		cfg.Aliases[alias] = target
	}

	return cfg, nil
}

// Canonical returns the canonical label for name, or name itself when no
// alias is declared. A nil receiver is valid.
func (c *AliasConfig) Canonical(name string) string {
	if c == nil {
		return name
	}
	if target, ok := c.Aliases[name]; ok {
		return target
	}
	return name
}
