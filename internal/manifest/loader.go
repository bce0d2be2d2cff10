package manifest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/specialistvlad/stepflow/internal/ctxlog"
)

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "step", LabelNames: []string{"type"}},
	},
}

var stepSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
		{Name: "takes_body"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "param", LabelNames: []string{"name"}},
	},
}

var paramSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "description"},
		{Name: "optional"},
		{Name: "default"},
	},
}

// LoadDir parses every .hcl file under path and returns the declared
// descriptors keyed by type.
func LoadDir(ctx context.Context, path string) (map[string]*Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifest: scanning %s: %w", path, err)
	}
	logger.Debug("Found manifest files.", "path", path, "count", len(files))

	parser := hclparse.NewParser()
	descriptors := make(map[string]*Descriptor)
	for _, f := range files {
		file, diags := parser.ParseHCLFile(f)
		if diags.HasErrors() {
			return nil, diags
		}
		if err := decodeFile(ctx, file, descriptors); err != nil {
			return nil, err
		}
	}
	return descriptors, nil
}

// Parse decodes descriptors from a single in-memory manifest, primarily for
// tests and embedded manifests.
func Parse(ctx context.Context, filename string, src []byte) (map[string]*Descriptor, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	descriptors := make(map[string]*Descriptor)
	if err := decodeFile(ctx, file, descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

func decodeFile(ctx context.Context, file *hcl.File, out map[string]*Descriptor) error {
	logger := ctxlog.FromContext(ctx)

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return diags
	}
	for _, block := range content.Blocks {
		stepType := block.Labels[0]
		if _, dup := out[stepType]; dup {
			return fmt.Errorf("manifest: step %q declared more than once", stepType)
		}
		desc, err := decodeStep(ctx, stepType, block.Body)
		if err != nil {
			return fmt.Errorf("manifest: step %q: %w", stepType, err)
		}
		logger.Debug("Decoded step descriptor.", "type", stepType, "takesBody", desc.TakesBody, "params", len(desc.Params))
		out[stepType] = desc
	}
	return nil
}

func decodeStep(ctx context.Context, stepType string, body hcl.Body) (*Descriptor, error) {
	content, diags := body.Content(stepSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	desc := &Descriptor{Type: stepType, Params: make(map[string]*Param)}

	if attr, ok := content.Attributes["description"]; ok {
		s, err := stringValue(attr)
		if err != nil {
			return nil, err
		}
		desc.Description = s
	}
	if attr, ok := content.Attributes["takes_body"]; ok {
		b, err := boolValue(attr)
		if err != nil {
			return nil, err
		}
		desc.TakesBody = b
	}

	for _, block := range content.Blocks {
		name := block.Labels[0]
		if _, dup := desc.Params[name]; dup {
			return nil, fmt.Errorf("param %q declared more than once", name)
		}
		p, err := decodeParam(ctx, name, block.Body)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		desc.Params[name] = p
	}
	return desc, nil
}

func decodeParam(ctx context.Context, name string, body hcl.Body) (*Param, error) {
	content, diags := body.Content(paramSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	p := &Param{Name: name}

	var typeExpr hcl.Expression
	if attr, ok := content.Attributes["type"]; ok {
		typeExpr = attr.Expr
	}
	typ, err := typeExprToCtyType(ctx, typeExpr)
	if err != nil {
		return nil, err
	}
	p.Type = typ

	if attr, ok := content.Attributes["description"]; ok {
		s, err := stringValue(attr)
		if err != nil {
			return nil, err
		}
		p.Description = s
	}
	if attr, ok := content.Attributes["optional"]; ok {
		b, err := boolValue(attr)
		if err != nil {
			return nil, err
		}
		p.Optional = b
	}
	if attr, ok := content.Attributes["default"]; ok {
		raw, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := convert.Convert(raw, p.Type)
		if err != nil {
			return nil, fmt.Errorf("default does not match declared type %s: %w", p.Type.FriendlyName(), err)
		}
		p.Default = &v
	}
	return p, nil
}

func stringValue(attr *hcl.Attribute) (string, error) {
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	sv, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("%s must be a string: %w", attr.Name, err)
	}
	return sv.AsString(), nil
}

func boolValue(attr *hcl.Attribute) (bool, error) {
	v, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return false, diags
	}
	bv, err := convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("%s must be a bool: %w", attr.Name, err)
	}
	return bv.True(), nil
}
