package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nysig/internal/model"
)

func TestNodeToJSON_PreservesKeyOrder(t *testing.T) {
	src := `
risk_management:
  target: "Prior day low"
  stop_loss: "Above the overnight high"
  max_risk_per_trade: "1% of account"
`
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))

	got, err := NodeToJSON(&node)
	require.NoError(t, err)
	assert.Equal(t,
		`{"risk_management":{"target":"Prior day low","stop_loss":"Above the overnight high","max_risk_per_trade":"1% of account"}}`,
		string(got))
}

func TestNodeToJSON_Scalars(t *testing.T) {
	src := `
int: 65
float: 0.7
bool: true
null_value: null
string: "bullish"
list: [1, "two", 3.5]
empty_map: {}
empty_list: []
`
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))

	got, err := NodeToJSON(&node)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"int":65,"float":0.7,"bool":true,"null_value":null,"string":"bullish","list":[1,"two",3.5],"empty_map":{},"empty_list":[]}`,
		string(got))
}

func TestNodeToJSON_Alias(t *testing.T) {
	src := `
base: &b
  strength: strong
correlations: *b
`
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))

	got, err := NodeToJSON(&node)
	require.NoError(t, err)
	assert.JSONEq(t, `{"base":{"strength":"strong"},"correlations":{"strength":"strong"}}`, string(got))
}

func TestNodeToJSON_EmptyDocument(t *testing.T) {
	got, err := NodeToJSON(&yaml.Node{Kind: yaml.DocumentNode})
	require.NoError(t, err)
	assert.Equal(t, "null", string(got))
}

func TestCompile_YAMLKeepsConditionOrder(t *testing.T) {
	src := `
- id: 1
  name: Ordered
  conditions:
    correlation_strength: strong
    volume_min: 1000
    overall_sentiment: bullish
  action:
    type: LONG
    position_size: small
`
	rules, err := Compile([]byte(src), FormatYAML, "rules.yaml")
	require.NoError(t, err)
	require.Len(t, rules, 1)

	assert.Equal(t, model.Conditions{
		model.CorrelationEquals{Label: "strong"},
		model.Unknown{Name: "volume_min", Raw: json.RawMessage(`1000`)},
		model.SentimentEquals{Label: "bullish"},
	}, rules[0].Conditions)
}
