package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	apperrors "vinreport-workers/internal/common/errors"
	"vinreport-workers/internal/models"
)

// Rule constrains a single request parameter. Pattern must match the whole
// value.
type Rule struct {
	Field    string
	Required bool
	Pattern  string
}

// AtLeastOne requires that one or more of Fields is present.
type AtLeastOne struct {
	Fields []string
}

// RuleSet is a compiled, immutable set of parameter rules. Violations are
// reported one at a time, in declaration order: field rules first, then
// at-least-one groups.
type RuleSet struct {
	rules        []Rule
	groups       []AtLeastOne
	fieldSchema  *gojsonschema.Schema
	groupSchemas []*gojsonschema.Schema
}

// NewRuleSet compiles rules into JSON Schema documents.
func NewRuleSet(rules []Rule, groups ...AtLeastOne) (*RuleSet, error) {
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.Field == "" {
			return nil, fmt.Errorf("validation rule with empty field")
		}
		if _, dup := seen[r.Field]; dup {
			return nil, fmt.Errorf("duplicate validation rule for %q", r.Field)
		}
		seen[r.Field] = struct{}{}
	}
	for _, g := range groups {
		if len(g.Fields) == 0 {
			return nil, fmt.Errorf("at-least-one group without fields")
		}
	}

	fieldSchema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(fieldSchemaDoc(rules)))
	if err != nil {
		return nil, fmt.Errorf("compile field rules: %w", err)
	}

	groupSchemas := make([]*gojsonschema.Schema, 0, len(groups))
	for _, g := range groups {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(groupSchemaDoc(g)))
		if err != nil {
			return nil, fmt.Errorf("compile group %v: %w", g.Fields, err)
		}
		groupSchemas = append(groupSchemas, s)
	}

	return &RuleSet{
		rules:        append([]Rule(nil), rules...),
		groups:       append([]AtLeastOne(nil), groups...),
		fieldSchema:  fieldSchema,
		groupSchemas: groupSchemas,
	}, nil
}

// Validate returns the first violated rule as *errors.ValidationError, or nil.
func (rs *RuleSet) Validate(params models.Params) error {
	doc := gojsonschema.NewGoLoader(toDocument(params.Map()))

	result, err := rs.fieldSchema.Validate(doc)
	if err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	if !result.Valid() {
		missing, invalid := classify(result.Errors())
		for _, r := range rs.rules {
			if _, ok := missing[r.Field]; ok && r.Required {
				return apperrors.NewMissingFieldError(r.Field)
			}
			if _, ok := invalid[r.Field]; ok {
				return apperrors.NewInvalidFieldError(r.Field)
			}
		}
	}

	for i, s := range rs.groupSchemas {
		result, err := s.Validate(doc)
		if err != nil {
			return fmt.Errorf("evaluate rules: %w", err)
		}
		if !result.Valid() {
			return apperrors.NewEitherRequiredError(rs.groups[i].Fields)
		}
	}
	return nil
}

// Fields lists the fields the set has rules for, sorted.
func (rs *RuleSet) Fields() []string {
	out := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		out = append(out, r.Field)
	}
	sort.Strings(out)
	return out
}

func fieldSchemaDoc(rules []Rule) map[string]interface{} {
	props := make(map[string]interface{}, len(rules))
	required := make([]interface{}, 0, len(rules))
	for _, r := range rules {
		prop := map[string]interface{}{"type": "string"}
		if r.Pattern != "" {
			prop["pattern"] = anchor(r.Pattern)
		}
		props[r.Field] = prop
		if r.Required {
			required = append(required, r.Field)
		}
	}

	doc := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func groupSchemaDoc(g AtLeastOne) map[string]interface{} {
	branches := make([]interface{}, 0, len(g.Fields))
	for _, f := range g.Fields {
		branches = append(branches, map[string]interface{}{
			"required": []interface{}{f},
		})
	}
	return map[string]interface{}{
		"type":  "object",
		"anyOf": branches,
	}
}

// anchor makes a pattern match the whole value.
func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}

func classify(errs []gojsonschema.ResultError) (missing, invalid map[string]struct{}) {
	missing = make(map[string]struct{})
	invalid = make(map[string]struct{})
	for _, e := range errs {
		switch e.Type() {
		case "required":
			if prop, ok := e.Details()["property"].(string); ok {
				missing[prop] = struct{}{}
			}
		default:
			invalid[e.Field()] = struct{}{}
		}
	}
	return missing, invalid
}

func toDocument(values map[string]string) map[string]interface{} {
	doc := make(map[string]interface{}, len(values))
	for k, v := range values {
		doc[k] = v
	}
	return doc
}
