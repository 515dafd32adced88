package formdata

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// maxAliasDepth bounds alias expansion in YAML input.
const maxAliasDepth = 32

// ParseData decodes a JSON or YAML object and returns it flattened together
// with the nested structure. Nested objects are returned as Records so that
// source key order survives.
func ParseData(raw []byte) (Record, any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to parse data: %w", err)
	}

	value, err := convertNode(&root, 0)
	if err != nil {
		return nil, nil, err
	}
	obj, ok := value.(Record)
	if !ok {
		return nil, nil, fmt.Errorf("data must be an object, got %T", value)
	}
	return Flatten(obj, ""), obj, nil
}

func convertNode(node *yaml.Node, depth int) (any, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("data nested too deeply")
	}

	switch node.Kind {
	case 0:
		return Record{}, nil
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Record{}, nil
		}
		return convertNode(node.Content[0], depth)
	case yaml.MappingNode:
		rec := make(Record, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: invalid key: %w", node.Content[i].Line, err)
			}
			value, err := convertNode(node.Content[i+1], depth+1)
			if err != nil {
				return nil, err
			}
			rec.Set(key, value)
		}
		return rec, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := convertNode(child, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	case yaml.AliasNode:
		return convertNode(node.Alias, depth+1)
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return value, nil
	}
}
