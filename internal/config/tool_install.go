package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalTOML accepts a bare string or an {operand, options} table.
func (t *ToolInstall) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*t = ToolInstall{Operand: v}
		return nil
	case map[string]any:
		var out ToolInstall
		for key, value := range v {
			switch key {
			case "operand":
				s, ok := value.(string)
				if !ok {
					return fmt.Errorf("uv_tool operand must be a string, got %T", value)
				}
				out.Operand = s
			case "options":
				list, ok := value.([]any)
				if !ok {
					return fmt.Errorf("uv_tool options must be an array, got %T", value)
				}
				for _, item := range list {
					s, ok := item.(string)
					if !ok {
						return fmt.Errorf("uv_tool option must be a string, got %T", item)
					}
					out.Options = append(out.Options, s)
				}
			default:
				return fmt.Errorf("unknown uv_tool key %q", key)
			}
		}
		*t = out
		return nil
	default:
		return fmt.Errorf("uv_tool entry must be a string or table, got %T", data)
	}
}

// UnmarshalYAML accepts a bare string or an {operand, options} mapping.
func (t *ToolInstall) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*t = ToolInstall{Operand: s}
		return nil
	case yaml.MappingNode:
		var out struct {
			Operand string   `yaml:"operand"`
			Options []string `yaml:"options"`
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			if key := node.Content[i].Value; key != "operand" && key != "options" {
				return fmt.Errorf("line %d: unknown uv_tool key %q", node.Content[i].Line, key)
			}
		}
		if err := node.Decode(&out); err != nil {
			return err
		}
		*t = ToolInstall{Operand: out.Operand, Options: out.Options}
		return nil
	default:
		return fmt.Errorf("line %d: uv_tool entry must be a string or mapping", node.Line)
	}
}
