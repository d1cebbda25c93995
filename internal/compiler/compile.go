package compiler

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nysig/internal/model"
)

//go:embed schema/rules.cue
var schemaSource string

// ReservedRuleID is the rule id used by statistical override signals.
// Rule documents may not use it.
const ReservedRuleID = 999

// Format is the on-disk encoding of a rule document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from the file extension.
// Anything that is not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Compile parses a rule document and validates it against the rule schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// YAML documents are converted to JSON first. The JSON document is unified
// with #RuleSet and must be concrete. Every failure is returned as a
// ConfigParseError carrying source and, when CUE knows it, the line.
func Compile(data []byte, format Format, source string) ([]model.Rule, error) {
	jsonData := data
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, model.NewConfigParseError(source, 0, "invalid YAML rule document", err)
		}
		jsonData = converted
	}

	if err := validateAgainstSchema(jsonData, source); err != nil {
		return nil, err
	}

	var rules []model.Rule
	if err := json.Unmarshal(jsonData, &rules); err != nil {
		return nil, model.NewConfigParseError(source, 0, "invalid rule document", err)
	}
	if rules == nil {
		rules = []model.Rule{}
	}

	for i, r := range rules {
		if r.Conditions == nil {
			return nil, model.NewConfigParseError(source, 0, fmt.Sprintf("rules[%d]: conditions is required", i), nil)
		}
		if r.Action == nil {
			return nil, model.NewConfigParseError(source, 0, fmt.Sprintf("rules[%d]: action is required", i), nil)
		}
	}

	return rules, nil
}

// validateAgainstSchema unifies the JSON document with #RuleSet.
func validateAgainstSchema(data []byte, source string) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("rules.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile rule schema: %w", err)
	}

	expr, err := cuejson.Extract(source, data)
	if err != nil {
		return formatCUEError(source, "invalid JSON rule document", err)
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return formatCUEError(source, "invalid rule document", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#RuleSet")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(source, "rule document does not match schema", err)
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(source, message string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return model.NewConfigParseError(source, 0, message, err)
	}

	// Report the first error with position info
	firstErr := errs[0]
	line := 0
	for _, pos := range errors.Positions(firstErr) {
		if pos.IsValid() && pos.Filename() == source {
			line = pos.Line()
			break
		}
	}
	return model.NewConfigParseError(source, line, message, firstErr)
}

// yamlToJSON re-encodes a YAML document as JSON, keeping mapping key order.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return nil, fmt.Errorf("empty document")
	}
	return NodeToJSON(&doc)
}

// CheckRule reports whether rule survives a write and a reload: it is
// encoded as a one-rule document and compiled back. A rule that fails here
// would make its whole rule file unreadable once persisted.
func CheckRule(rule model.Rule) error {
	data, err := Encode([]model.Rule{rule}, FormatJSON)
	if err != nil {
		return model.NewConfigParseError("", 0, fmt.Sprintf("rule %d cannot be encoded", rule.ID), err)
	}
	if _, err := Compile(data, FormatJSON, fmt.Sprintf("rule %d", rule.ID)); err != nil {
		return err
	}
	return nil
}

// Encode writes rules in the given format: an indented JSON array, or a
// YAML sequence.
func Encode(rules []model.Rule, format Format) ([]byte, error) {
	if rules == nil {
		rules = []model.Rule{}
	}

	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rules); err != nil {
			return nil, fmt.Errorf("encode rules: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode rules: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(rules); err != nil {
			return nil, fmt.Errorf("encode rules: %w", err)
		}
	}
	return buf.Bytes(), nil
}
