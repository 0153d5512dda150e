package taxjar

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeHasError(t *testing.T) {
	cases := map[string]bool{
		``:                       false,
		`null`:                   false,
		`""`:                     false,
		`false`:                  false,
		`0`:                      false,
		`{}`:                     false,
		`[ ]`:                    false,
		`{ }`:                    false,
		`"Unauthorized"`:         true,
		`{"info":"Invalid json"}`: true,
		`true`:                   true,
	}
	for raw, want := range cases {
		env := Envelope{Error: json.RawMessage(raw)}
		require.Equal(t, want, env.HasError(), "error=%q", raw)
	}
}

func TestRateSummaryKeepsDecimalRates(t *testing.T) {
	var summary RateSummary
	require.NoError(t, json.Unmarshal([]byte(`{
		"country_code": "US",
		"country": "United States",
		"region_code": "CA",
		"region": "California",
		"average_rate": {"label": "Tax", "rate": 0.0827}
	}`), &summary))
	require.Nil(t, summary.MinimumRate)

	raw, err := json.Marshal(summary)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"country_code": "US",
		"country": "United States",
		"region_code": "CA",
		"region": "California",
		"average_rate": {"label": "Tax", "rate": "0.0827"}
	}`, string(raw))
}
