package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// YAML is a kong.ConfigurationLoader. Keys match flag names, with dashes or underscores. A mapping
// keyed by a command name holds values for that command's flags and takes precedence over the top
// level:
//
//	tick: 5s
//	serve:
//	  addr: ":9090"
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	var f kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		scopes := []map[string]any{values}
		if parent != nil && parent.Command != nil {
			if section, ok := values[parent.Command.Name].(map[string]any); ok {
				scopes = append([]map[string]any{section}, scopes...)
			}
		}
		for _, scope := range scopes {
			if v, ok := lookup(scope, flag.Name); ok {
				return flatten(v), nil
			}
		}
		return nil, nil
	}
	return f, nil
}

func lookup(m map[string]any, name string) (any, bool) {
	for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if v, ok := m[key]; ok {
			if _, section := v.(map[string]any); section {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

// flatten turns YAML scalars and lists into the string form kong parses from the command line.
func flatten(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}
