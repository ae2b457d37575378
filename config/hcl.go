package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclSource reads top-level attributes from an HCL file.
type hclSource struct {
	attrs map[string]cty.Value
}

func openHCL(path string) (Source, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parsing %s: %s", path, diags.Error())
	}
	bodyAttrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: reading attributes of %s: %s", path, diags.Error())
	}

	attrs := make(map[string]cty.Value, len(bodyAttrs))
	for name, attr := range bodyAttrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("config: evaluating %q in %s: %s", name, path, diags.Error())
		}
		attrs[name] = val
	}
	return &hclSource{attrs: attrs}, nil
}

func (s *hclSource) GetString(key, def string) string {
	v, ok := s.attrs[key]
	if !ok {
		return def
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	default:
		return def
	}
}

func (s *hclSource) GetInt(key string, def int) int {
	v, ok := s.attrs[key]
	if !ok || v.Type() != cty.Number {
		return def
	}
	n, _ := v.AsBigFloat().Int64()
	return int(n)
}

func (s *hclSource) GetBool(key string, def bool) bool {
	v, ok := s.attrs[key]
	if !ok || v.Type() != cty.Bool {
		return def
	}
	return v.True()
}

func (s *hclSource) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(s.attrs))
	for name, v := range s.attrs {
		switch v.Type() {
		case cty.String:
			values[name] = v.AsString()
		case cty.Number:
			n, _ := v.AsBigFloat().Int64()
			values[name] = n
		case cty.Bool:
			values[name] = v.True()
		}
	}
	return values
}
