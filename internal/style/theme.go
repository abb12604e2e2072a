package style

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"

	"github.com/rendis/flowgraph/internal/validation"
	"github.com/rendis/flowgraph/pkg/schema"
)

// Theme is the on-disk form of a Config. With Inherit set, the theme is
// layered over DefaultConfig instead of replacing it.
type Theme struct {
	Inherit bool `json:"inherit,omitempty"`
	Config
}

// ParseTheme validates and decodes a JSON theme document.
func ParseTheme(data []byte) (Config, error) {
	if err := validation.ValidateTheme(data); err != nil {
		return Config{}, err
	}

	var th Theme
	if err := json.Unmarshal(data, &th); err != nil {
		return Config{}, schema.NewError(schema.ErrCodeConfig, "decode theme").WithCause(err)
	}
	if !th.Inherit {
		return th.Config, nil
	}
	return merge(DefaultConfig(), th.Config), nil
}

// LoadTheme reads a theme file and builds a Policy from it.
func LoadTheme(path string, opts ...Option) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("style: read theme %s: %w", path, err)
	}
	cfg, err := ParseTheme(data)
	if err != nil {
		return nil, fmt.Errorf("style: theme %s: %w", path, err)
	}
	return NewPolicy(cfg, opts...)
}

// merge layers over on top of base. Base rules are kept only while both sides
// use the same expression engine, since rule syntax differs between engines.
func merge(base, over Config) Config {
	out := base
	out.Statuses = maps.Clone(base.Statuses)
	maps.Copy(out.Statuses, over.Statuses)

	if over.Engine != "" && over.Engine != base.Engine {
		out.Engine = over.Engine
		out.Rules = nil
	}
	out.Rules = append(append([]Rule(nil), over.Rules...), out.Rules...)

	if over.Fallback.Name != "" {
		out.Fallback = over.Fallback
	}
	if over.Line.Name != "" {
		out.Line = over.Line
	}
	return out
}
