package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBytes(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	valid := []string{
		`[]`,
		`[{"id":0,"name":null,"enabled":true,"modes":[]}]`,
		`[{"id":4294967295,"enabled":false,"modes":[{"width":800,"height":600,"refresh_rates":[60,75]}]}]`,
		`[{"id":1,"name":"x","enabled":true,"modes":[],"extra":"ignored"}]`,
	}
	for _, doc := range valid {
		assert.NoError(t, v.ValidateBytes([]byte(doc)), doc)
	}

	invalid := []string{
		`{}`,
		`[{"id":-1,"enabled":true,"modes":[]}]`,
		`[{"id":4294967296,"enabled":true,"modes":[]}]`,
		`[{"id":1,"modes":[]}]`,
		`[{"id":1,"enabled":"yes","modes":[]}]`,
		`[{"id":1,"enabled":true,"modes":[{"width":800,"refresh_rates":[]}]}]`,
		`[{"id":1,"enabled":true,"modes":[{"width":800,"height":600,"refresh_rates":[60.5]}]}]`,
		`[{"id":1,"enabled":true,"modes":null}]`,
		`not json`,
	}
	for _, doc := range invalid {
		assert.Error(t, v.ValidateBytes([]byte(doc)), doc)
	}
}

func TestGenerate(t *testing.T) {
	data, err := Generate()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Virtual Display Driver Topology", doc["title"])
	assert.Contains(t, string(data), "refresh_rates")
}
