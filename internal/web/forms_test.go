package web

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "0", want: 0},
		{raw: " 12.5 ", want: 12.5},
		{raw: "-0.01", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "Inf", wantErr: true},
		{raw: "ten", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.raw)
		if tt.wantErr {
			assert.ErrorIs(t, err, errInvalidValue, "raw %q", tt.raw)
			continue
		}
		require.NoError(t, err, "raw %q", tt.raw)
		assert.Equal(t, tt.want, got)
	}
	assert.False(t, validValue(math.Inf(1)))
}

func TestCustomerPatchFromForm_AbsentFieldsStayNil(t *testing.T) {
	patch := customerPatchFromForm(url.Values{"address": {"  12 Elm St "}})

	assert.Nil(t, patch.Name)
	require.NotNil(t, patch.Address)
	assert.Equal(t, "12 Elm St", *patch.Address)
}

func TestOrderPatchFromForm(t *testing.T) {
	patch, err := orderPatchFromForm(url.Values{"date": {"2024-01-02"}, "value": {"3"}})
	require.NoError(t, err)
	assert.Nil(t, patch.CustomerID)
	assert.Equal(t, "2024-01-02", *patch.Date)
	assert.Equal(t, 3.0, *patch.Value)

	_, err = orderPatchFromForm(url.Values{"value": {"oops"}})
	assert.ErrorIs(t, err, errInvalidValue)
}

func TestLoadViews_AllPagesParsed(t *testing.T) {
	v, err := loadViews()
	require.NoError(t, err)
	for _, name := range pageNames {
		assert.Contains(t, v.pages, name)
	}
}
