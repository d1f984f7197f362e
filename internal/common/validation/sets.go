package validation

import "fmt"

// Field names shared by the request rules.
const (
	FieldToken = "token"
	FieldEmail = "email"
	FieldSTS   = "sts"
	FieldVIN   = "vin"
	FieldGRZ   = "grz"
)

// Patterns holds the regular expressions for the identifying fields.
type Patterns struct {
	STS   string
	VIN   string
	GRZ   string
	Email string
}

// DefaultPatterns accept Russian registration certificates and plates.
func DefaultPatterns() Patterns {
	return Patterns{
		STS:   `[0-9]{2}[0-9А-ЯA-Z]{2}[0-9]{6}`,
		VIN:   `[A-HJ-NPR-Z0-9]{17}`,
		GRZ:   `[АВЕКМНОРСТУХABEKMHOPCTYX][0-9]{3}[АВЕКМНОРСТУХABEKMHOPCTYX]{2}[0-9]{2,3}`,
		Email: `[^@\s]+@[^@\s]+\.[^@\s]+`,
	}
}

func TokenRules() []Rule {
	return []Rule{{Field: FieldToken, Required: true}}
}

func EmailRules(p Patterns) []Rule {
	return []Rule{{Field: FieldEmail, Required: true, Pattern: p.Email}}
}

// VehicleRules require sts and at least one of vin or grz.
func VehicleRules(p Patterns) ([]Rule, []AtLeastOne) {
	return []Rule{
			{Field: FieldSTS, Required: true, Pattern: p.STS},
			{Field: FieldVIN, Pattern: p.VIN},
			{Field: FieldGRZ, Pattern: p.GRZ},
		}, []AtLeastOne{
			{Fields: []string{FieldVIN, FieldGRZ}},
		}
}

// Sets are the rule sets used by each entry point.
type Sets struct {
	Report  *RuleSet
	Send    *RuleSet
	Example *RuleSet
}

// NewSets compiles the per-entry-point rule sets.
func NewSets(p Patterns) (*Sets, error) {
	vehicle, groups := VehicleRules(p)

	report, err := NewRuleSet(concat(TokenRules(), vehicle), groups...)
	if err != nil {
		return nil, fmt.Errorf("report rules: %w", err)
	}
	send, err := NewRuleSet(concat(TokenRules(), EmailRules(p), vehicle), groups...)
	if err != nil {
		return nil, fmt.Errorf("send rules: %w", err)
	}
	example, err := NewRuleSet(concat(TokenRules(), EmailRules(p)))
	if err != nil {
		return nil, fmt.Errorf("example rules: %w", err)
	}
	return &Sets{Report: report, Send: send, Example: example}, nil
}

func concat(parts ...[]Rule) []Rule {
	var out []Rule
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
