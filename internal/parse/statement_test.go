package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCents(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  int64
		expectErr bool
	}{
		{name: "Whole number", raw: "150", expected: 15000},
		{name: "One decimal place", raw: "150.5", expected: 15050},
		{name: "Two decimal places", raw: "0.07", expected: 7},
		{name: "Extra places are truncated", raw: "19.999", expected: 1999},
		{name: "Float rounding trap", raw: "1.15", expected: 115},
		{name: "Negative", raw: "-20.10", expected: -2010},
		{name: "Negative truncates toward zero", raw: "-19.999", expected: -1999},
		{name: "Leading plus", raw: "+7.5", expected: 750},
		{name: "Empty", raw: "", expected: 0},
		{name: "Exponent", raw: "1.5e2", expected: 15000},
		{name: "Upper case exponent", raw: "1.505E2", expected: 15050},
		{name: "Below one cent", raw: "0.009", expected: 0},
		{name: "Tiny exponent", raw: "1e-999999999", expected: 0},
		{name: "Largest amount", raw: "92233720368547758.07", expected: 9223372036854775807},
		{name: "One cent past the largest amount", raw: "92233720368547758.08", expectErr: true},
		{name: "Whole part overflows", raw: "200000000000000000", expectErr: true},
		{name: "Huge exponent", raw: "1e19", expectErr: true},
		{name: "Sign in fraction", raw: "1.+5", expectErr: true},
		{name: "Sign after point", raw: ".-5", expectErr: true},
		{name: "Doubled sign", raw: "--5", expectErr: true},
		{name: "Garbage", raw: "12a", expectErr: true},
		{name: "Garbage fraction", raw: "1.x", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Cents(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestStatement(t *testing.T) {
	body := []byte(`{
	  "accountStatement": {
	    "info": {"currency": "CZK"},
	    "transactionList": {
	      "transaction": [
	        {"column22": {"value": 26001}, "column1": {"value": 150.5}, "column5": {"value": "101"},
	         "column0": {"value": 1772366400000}, "column14": {"value": "CZK"}},
	        {"column22": {"value": 26002}, "column1": {"value": -300}, "column5": {"value": "101"},
	         "column0": {"value": 1772366400000}, "column14": {"value": "CZK"}},
	        {"column1": {"value": 20}, "column5": {"value": "102"},
	         "column0": {"value": 1772366400000}, "column14": {"value": "CZK"}},
	        {"column22": {"value": 26003}, "column1": {"value": 20}, "column5": null,
	         "column0": {"value": "2026-03-01+0100"}, "column14": {"value": "EUR"}}
	      ]
	    }
	  }
	}`)

	txns, rejects, err := Statement(body)
	require.NoError(t, err)
	assert.Empty(t, rejects)
	require.Len(t, txns, 2)

	assert.Equal(t, "26001", txns[0].ID)
	assert.Equal(t, int64(15050), txns[0].Amount)
	assert.Equal(t, "101", txns[0].VariableSymbol)
	assert.Equal(t, "CZK", txns[0].Currency)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), txns[0].Time)

	assert.Equal(t, "26003", txns[1].ID)
	assert.Equal(t, "", txns[1].VariableSymbol)
	assert.Equal(t, "EUR", txns[1].Currency)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC), txns[1].Time)
}

func TestStatement_Errors(t *testing.T) {
	_, _, err := Statement([]byte(`not json`))
	assert.Error(t, err)

	txns, rejects, err := Statement([]byte(`{"accountStatement": {"transactionList": null}}`))
	assert.NoError(t, err)
	assert.Empty(t, txns)
	assert.Empty(t, rejects)
}

func TestStatement_MalformedRowsDoNotBlockOthers(t *testing.T) {
	body := []byte(`{"accountStatement": {"transactionList": {"transaction": [
	  {"column22": {"value": 1}, "column1": {"value": 10}, "column5": {"value": "101"}, "column14": {"value": "CZK"}},
	  {"column22": {"value": 2}, "column1": {"value": 200000000000000000}, "column5": {"value": "101"},
	   "column0": {"value": 1772366400000}, "column14": {"value": "CZK"}},
	  {"column22": {"value": 3}, "column1": {"value": "1.+5"}, "column5": {"value": "101"},
	   "column0": {"value": 1772366400000}, "column14": {"value": "CZK"}},
	  {"column22": {"value": 4}, "column1": {"value": 12.5}, "column5": {"value": "102"},
	   "column0": {"value": 1772366400000}, "column14": {"value": "CZK"}}
	]}}}`)

	txns, rejects, err := Statement(body)
	require.NoError(t, err)

	require.Len(t, txns, 1)
	assert.Equal(t, "4", txns[0].ID)
	assert.Equal(t, int64(1250), txns[0].Amount)

	require.Len(t, rejects, 3)
	assert.Equal(t, "1", rejects[0].ID)
	assert.Equal(t, 0, rejects[0].Row)
	assert.Contains(t, rejects[0].Error(), "missing payment date")
	assert.Equal(t, "2", rejects[1].ID)
	assert.Contains(t, rejects[1].Error(), "out of range")
	assert.Equal(t, "3", rejects[2].ID)
}
