package profile

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	Dev  Mode = "dev"
	Prod Mode = "prod"
)

var ErrInvalidMode = errors.New("invalid mode")

// Modes lists every supported mode in CLI order.
func Modes() []Mode { return []Mode{Dev, Prod} }

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Dev, Prod:
		return m, nil
	}
	return "", fmt.Errorf("%w %q (want dev or prod)", ErrInvalidMode, s)
}

func (m Mode) String() string { return string(m) }

type Var struct {
	Key   string
	Value string
}

// Vars is an ordered KEY=VALUE list. In YAML it is written as a mapping and
// keeps the mapping's order.
type Vars []Var

func (v Vars) Get(key string) (string, bool) {
	for _, kv := range v {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

func (v Vars) Keys() []string {
	out := make([]string, 0, len(v))
	for _, kv := range v {
		out = append(out, kv.Key)
	}
	return out
}

func (v *Vars) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: env must be a mapping", node.Line)
	}
	out := make(Vars, 0, len(node.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %q must be a scalar", val.Line, k.Value)
		}
		if seen[k.Value] {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		seen[k.Value] = true
		out = append(out, Var{Key: k.Value, Value: val.Value})
	}
	*v = out
	return nil
}

func (v Vars) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range v {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv.Value},
		)
	}
	return node, nil
}

// CSP holds sources appended to the default content-security-policy
// directives.
type CSP struct {
	ImgSrc    []string `yaml:"img_src"`
	MediaSrc  []string `yaml:"media_src"`
	ScriptSrc []string `yaml:"script_src"`
}

type Profile struct {
	Env          Vars     `yaml:"env"`
	CORSOrigins  []string `yaml:"cors_origins"`
	CSP          CSP      `yaml:"csp"`
	Start        []string `yaml:"start"`
	RequireBuild bool     `yaml:"require_build"`
}

// URL is the profile's public URL, baked into the server module.
func (p Profile) URL() string {
	u, _ := p.Env.Get("URL")
	return u
}
