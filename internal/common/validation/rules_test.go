package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vinreport-workers/internal/common/errors"
	"vinreport-workers/internal/models"
)

const (
	validSTS   = "77УМ123456"
	validVIN   = "XTA210990Y2765499"
	validGRZ   = "А123ВС777"
	validEmail = "owner@example.com"
)

func sendParams(overrides map[string]string) models.Params {
	base := map[string]string{
		"token": "t-1",
		"email": validEmail,
		"sts":   validSTS,
		"vin":   validVIN,
		"grz":   validGRZ,
	}
	for k, v := range overrides {
		base[k] = v
	}
	return models.NewParams(base)
}

func TestSendRules(t *testing.T) {
	sets, err := NewSets(DefaultPatterns())
	require.NoError(t, err)

	tests := []struct {
		name       string
		params     models.Params
		wantReason string
		wantCode   int
	}{
		{name: "all valid", params: sendParams(nil)},
		{name: "missing token", params: sendParams(map[string]string{"token": "null"}), wantReason: "Missing token", wantCode: 405},
		{name: "missing email", params: sendParams(map[string]string{"email": "null"}), wantReason: "Missing email", wantCode: 405},
		{name: "invalid email", params: sendParams(map[string]string{"email": "nobody"}), wantReason: "Invalid email", wantCode: 406},
		{name: "missing sts", params: sendParams(map[string]string{"sts": "null"}), wantReason: "Missing sts", wantCode: 405},
		{name: "invalid sts", params: sendParams(map[string]string{"sts": "1"}), wantReason: "Invalid sts", wantCode: 406},
		{name: "invalid vin", params: sendParams(map[string]string{"vin": "short"}), wantReason: "Invalid vin", wantCode: 406},
		{name: "invalid grz", params: sendParams(map[string]string{"grz": "???"}), wantReason: "Invalid grz", wantCode: 406},
		{name: "vin alone is enough", params: sendParams(map[string]string{"grz": "null"})},
		{name: "grz alone is enough", params: sendParams(map[string]string{"vin": "null"})},
		{
			name:       "neither vin nor grz",
			params:     sendParams(map[string]string{"vin": "null", "grz": "null"}),
			wantReason: "vin or grz must be specified",
			wantCode:   405,
		},
		{
			name:       "token checked before email",
			params:     sendParams(map[string]string{"token": "null", "email": "bad"}),
			wantReason: "Missing token",
			wantCode:   405,
		},
		{
			name:       "sts checked before vin",
			params:     sendParams(map[string]string{"sts": "bad", "vin": "bad"}),
			wantReason: "Invalid sts",
			wantCode:   406,
		},
		{
			name:       "field errors before group errors",
			params:     sendParams(map[string]string{"sts": "bad", "vin": "null", "grz": "null"}),
			wantReason: "Invalid sts",
			wantCode:   406,
		},
		{
			name:       "pattern must match whole value",
			params:     sendParams(map[string]string{"vin": validVIN + "0"}),
			wantReason: "Invalid vin",
			wantCode:   406,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sets.Send.Validate(tt.params)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			ve, ok := apperrors.AsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tt.wantReason, ve.Reason)
			assert.Equal(t, tt.wantCode, ve.Code)
		})
	}
}

func TestExampleRules_IgnoreVehicleFields(t *testing.T) {
	sets, err := NewSets(DefaultPatterns())
	require.NoError(t, err)

	params := models.NewParams(map[string]string{"token": "t", "email": validEmail})
	assert.NoError(t, sets.Example.Validate(params))
	assert.Error(t, sets.Report.Validate(params))
}

func TestReportRules_NoEmailNeeded(t *testing.T) {
	sets, err := NewSets(DefaultPatterns())
	require.NoError(t, err)

	params := models.NewParams(map[string]string{"token": "t", "sts": validSTS, "grz": validGRZ})
	assert.NoError(t, sets.Report.Validate(params))
}

func TestNewRuleSet_Errors(t *testing.T) {
	_, err := NewRuleSet([]Rule{{Field: "a"}, {Field: "a"}})
	assert.Error(t, err)

	_, err = NewRuleSet([]Rule{{Field: ""}})
	assert.Error(t, err)

	_, err = NewRuleSet(nil, AtLeastOne{})
	assert.Error(t, err)

	_, err = NewRuleSet([]Rule{{Field: "a", Pattern: "("}})
	assert.Error(t, err)
}

func TestRuleSet_Fields(t *testing.T) {
	rs, err := NewRuleSet([]Rule{{Field: "vin"}, {Field: "sts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sts", "vin"}, rs.Fields())
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "^(?:a|b)$", anchor("a|b"))
}
