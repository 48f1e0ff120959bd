package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiledSchemas caches input schemas by tool name.
var compiledSchemas sync.Map

type compiledSchema struct {
	schema *jsonschema.Schema
	doc    map[string]any
}

func compileInputSchema(def mcp.Tool) (*compiledSchema, error) {
	if cached, ok := compiledSchemas.Load(def.Name); ok {
		return cached.(*compiledSchema), nil
	}

	data, err := json.Marshal(def.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}

	url := def.Name + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("load input schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}

	cs := &compiledSchema{schema: schema, doc: doc}
	actual, _ := compiledSchemas.LoadOrStore(def.Name, cs)
	return actual.(*compiledSchema), nil
}

// validateArgs fills defaults, drops null optionals and validates args
// against the tool's input schema. Unknown properties are left alone.
func validateArgs(def mcp.Tool, args map[string]any) error {
	cs, err := compileInputSchema(def)
	if err != nil {
		return err
	}

	for name, raw := range def.InputSchema.Properties {
		if v, present := args[name]; present && v != nil {
			continue
		}
		prop, _ := raw.(map[string]any)
		if dflt, ok := prop["default"]; ok {
			args[name] = dflt
		} else {
			delete(args, name)
		}
	}

	err = cs.schema.Validate(map[string]any(args))
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return describeViolation(def.InputSchema, cs.doc, args, firstLeaf(verr))
}

// firstLeaf returns the innermost violation with the smallest instance location,
// so reports are stable across runs.
func firstLeaf(verr *jsonschema.ValidationError) *jsonschema.ValidationError {
	var leaves []*jsonschema.ValidationError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].InstanceLocation != leaves[j].InstanceLocation {
			return leaves[i].InstanceLocation < leaves[j].InstanceLocation
		}
		return leaves[i].KeywordLocation < leaves[j].KeywordLocation
	})
	return leaves[0]
}

func describeViolation(schema mcp.ToolInputSchema, doc map[string]any, args map[string]any, leaf *jsonschema.ValidationError) error {
	keyword := pointerTokens(leaf.KeywordLocation)
	instance := pointerTokens(leaf.InstanceLocation)

	switch {
	case len(keyword) > 0 && keyword[len(keyword)-1] == "required" && len(instance) == 0:
		for _, name := range schema.Required {
			if _, ok := args[name]; !ok {
				return fmt.Errorf("missing required parameter %q", name)
			}
		}
	case len(keyword) > 0 && keyword[len(keyword)-1] == "type" && len(instance) > 0:
		want, _ := lookup(doc, keyword).(string)
		got, _ := lookupInstance(args, instance)
		return typeError(instanceName(args, instance), want, got)
	}
	if len(instance) == 0 {
		return fmt.Errorf("%s", leaf.Message)
	}
	return fmt.Errorf("parameter %q: %s", instanceName(args, instance), leaf.Message)
}

// pointerTokens splits a JSON pointer ("/a/0/b") into unescaped tokens.
func pointerTokens(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	tokens := strings.Split(ptr, "/")
	for i, t := range tokens {
		tokens[i] = strings.ReplaceAll(strings.ReplaceAll(t, "~1", "/"), "~0", "~")
	}
	return tokens
}

func lookup(v any, tokens []string) any {
	for _, t := range tokens {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[t]
	}
	return v
}

func lookupInstance(args map[string]any, tokens []string) (any, bool) {
	var v any = args
	for _, t := range tokens {
		switch node := v.(type) {
		case map[string]any:
			v = node[t]
		case []any:
			i, err := strconv.Atoi(t)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			v = node[i]
		default:
			return nil, false
		}
	}
	return v, true
}

// instanceName renders tokens as headers.a or args[0].
func instanceName(args map[string]any, tokens []string) string {
	var b strings.Builder
	var v any = args
	for i, t := range tokens {
		if arr, ok := v.([]any); ok {
			b.WriteString("[" + t + "]")
			if n, err := strconv.Atoi(t); err == nil && n >= 0 && n < len(arr) {
				v = arr[n]
			} else {
				v = nil
			}
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(t)
		if m, ok := v.(map[string]any); ok {
			v = m[t]
		} else {
			v = nil
		}
	}
	return b.String()
}

func typeError(name, want string, got any) error {
	return fmt.Errorf("parameter %q must be %s, got %s", name, want, jsonTypeName(got))
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
