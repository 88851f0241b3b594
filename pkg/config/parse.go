package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParsePlanYAML parses a Plan from YAML bytes and validates it.
func ParsePlanYAML(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan yaml: %w", err)
	}

	if err := validatePlan(&plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	return &plan, nil
}

// ParsePlanYAMLString parses a Plan from a YAML string and validates it.
func ParsePlanYAMLString(yamlText string) (*Plan, error) {
	return ParsePlanYAML([]byte(yamlText))
}

// UnmarshalYAML decodes a parameter mapping in document order, expanding
// generator mappings into value lists.
func (p *Parameters) UnmarshalYAML(node *yaml.Node) error {
	node = resolveAlias(node)
	if node.Tag == "!!null" {
		*p = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameters must be a mapping", node.Line)
	}

	params := make(Parameters, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		v, err := decodeParam(resolveAlias(val))
		if err != nil {
			return fmt.Errorf("line %d: parameter %s: %w", key.Line, key.Value, err)
		}
		params = append(params, Param{Name: key.Value, Value: v})
	}
	*p = params
	return nil
}

// MarshalYAML writes the parameters back as an ordered mapping.
func (p Parameters) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, param := range p {
		var val yaml.Node
		if err := val.Encode(param.Value); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", param.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: param.Name},
			&val,
		)
	}
	return node, nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func decodeParam(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case yaml.SequenceNode:
		values := make([]any, 0, len(node.Content))
		if err := node.Decode(&values); err != nil {
			return nil, err
		}
		return values, nil
	case yaml.MappingNode:
		return decodeGenerator(node)
	default:
		return nil, fmt.Errorf("unsupported value")
	}
}

// decodeGenerator expands {range: "a:b:s"}, {linspace: [lo, hi, n]} or
// {logspace: [lo, hi, n]}.
func decodeGenerator(node *yaml.Node) ([]any, error) {
	if len(node.Content) != 2 {
		return nil, fmt.Errorf("generator must have exactly one key (range, linspace or logspace)")
	}
	kind, arg := node.Content[0].Value, resolveAlias(node.Content[1])

	switch kind {
	case "range":
		var spec string
		if err := arg.Decode(&spec); err != nil {
			return nil, fmt.Errorf("range: %w", err)
		}
		return ParseRange(spec)
	case "linspace", "logspace":
		var args []float64
		if err := arg.Decode(&args); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if len(args) != 3 {
			return nil, fmt.Errorf("%s expects [lo, hi, n], got %d values", kind, len(args))
		}
		n := int(args[2])
		if float64(n) != args[2] {
			return nil, fmt.Errorf("%s count must be an integer, got %g", kind, args[2])
		}
		gen := Linspace
		if kind == "logspace" {
			gen = Logspace
		}
		values, err := gen(args[0], args[1], n)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown generator %q (must be range, linspace or logspace)", kind)
	}
}
