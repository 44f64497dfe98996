package converter

import "strings"

// NormalizeTool accepts any of the seven tool shapes recognized by the
// upstream ecosystem and projects it to the canonical {name, description,
// inputSchema} shape (§4.3). ok is false for a recognized-but-dropped tool
// (web_search/websearch) or a shape that matches none of the seven.
//
// Shape discrimination order matches the priority implied by spec.md:
//  1. {type:"function", function:{name, description, parameters}}
//  2. {toolSpecification:{name, description, inputSchema:{json}}}
//  3. {name, description, input_schema|schema}
//  4. {name, description, parameters}
//  5. {id, parameters, description?}
//  6. {id, schema, description?}
//  7. {name, description?}
func NormalizeTool(raw map[string]interface{}) (CanonicalTool, bool) {
	var tool CanonicalTool

	if fn, ok := raw["function"].(map[string]interface{}); ok && raw["type"] != nil {
		tool = CanonicalTool{
			Name:        str(fn["name"]),
			Description: str(fn["description"]),
			InputSchema: orEmptySchema(fn["parameters"]),
		}
		return finalizeTool(tool)
	}

	if spec, ok := raw["toolSpecification"].(map[string]interface{}); ok {
		inputSchema := spec["inputSchema"]
		if wrapped, ok := inputSchema.(map[string]interface{}); ok {
			if j, ok := wrapped["json"]; ok {
				inputSchema = j
			}
		}
		tool = CanonicalTool{
			Name:        str(spec["name"]),
			Description: str(spec["description"]),
			InputSchema: orEmptySchema(inputSchema),
		}
		return finalizeTool(tool)
	}

	if name := str(raw["name"]); name != "" {
		if schema, ok := raw["input_schema"]; ok {
			tool = CanonicalTool{Name: name, Description: str(raw["description"]), InputSchema: orEmptySchema(schema)}
			return finalizeTool(tool)
		}
		if schema, ok := raw["schema"]; ok {
			tool = CanonicalTool{Name: name, Description: str(raw["description"]), InputSchema: orEmptySchema(schema)}
			return finalizeTool(tool)
		}
		if params, ok := raw["parameters"]; ok {
			tool = CanonicalTool{Name: name, Description: str(raw["description"]), InputSchema: orEmptySchema(params)}
			return finalizeTool(tool)
		}
		tool = CanonicalTool{Name: name, Description: str(raw["description"]), InputSchema: orEmptySchema(nil)}
		return finalizeTool(tool)
	}

	if id := str(raw["id"]); id != "" {
		if params, ok := raw["parameters"]; ok {
			tool = CanonicalTool{Name: id, Description: str(raw["description"]), InputSchema: orEmptySchema(params)}
			return finalizeTool(tool)
		}
		if schema, ok := raw["schema"]; ok {
			tool = CanonicalTool{Name: id, Description: str(raw["description"]), InputSchema: orEmptySchema(schema)}
			return finalizeTool(tool)
		}
	}

	return CanonicalTool{}, false
}

func finalizeTool(tool CanonicalTool) (CanonicalTool, bool) {
	lower := strings.ToLower(tool.Name)
	if lower == "web_search" || lower == "websearch" {
		return CanonicalTool{}, false
	}
	if tool.Name == "" {
		return CanonicalTool{}, false
	}
	return tool, true
}

func orEmptySchema(v interface{}) interface{} {
	if v == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	return v
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

// MaxToolDescriptionLength is the default long-description threshold (§4.3);
// 0 disables extraction.
const MaxToolDescriptionLength = 10000

// ExtractLongDescriptions replaces any tool description exceeding threshold
// with a cross-reference marker and returns the extracted text appended to
// an appendix suitable for the system prompt (§4.3). threshold == 0 disables
// extraction entirely.
func ExtractLongDescriptions(tools []CanonicalTool, threshold int) ([]CanonicalTool, string) {
	if threshold <= 0 {
		return tools, ""
	}

	out := make([]CanonicalTool, len(tools))
	var appendix strings.Builder

	for i, tool := range tools {
		out[i] = tool
		if len(tool.Description) <= threshold {
			continue
		}
		appendix.WriteString("\n## Tool: ")
		appendix.WriteString(tool.Name)
		appendix.WriteString("\n")
		appendix.WriteString(tool.Description)
		appendix.WriteString("\n")
		out[i].Description = "See full description for '" + tool.Name + "' in the Tool Documentation section below."
	}

	if appendix.Len() == 0 {
		return out, ""
	}
	return out, "\n---\n# Tool Documentation\n" + appendix.String()
}
