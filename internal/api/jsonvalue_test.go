package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONValueDecodeMixedDocument(t *testing.T) {
	raw := `{
		"nickname": "Алексей",
		"completed": 4,
		"rate": 0.8,
		"active": true,
		"nothing": null,
		"tasks": ["a", "b"],
		"nested": {"total": 5}
	}`

	var doc map[string]JSONValue
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, JSONString, doc["nickname"].Kind)
	assert.Equal(t, "Алексей", doc["nickname"].Str)
	assert.Equal(t, JSONNumber, doc["completed"].Kind)
	assert.Equal(t, 4.0, doc["completed"].Num)
	assert.Equal(t, JSONBool, doc["active"].Kind)
	assert.True(t, doc["active"].Bool)
	assert.Equal(t, JSONNull, doc["nothing"].Kind)
	assert.Equal(t, JSONArray, doc["tasks"].Kind)
	require.Len(t, doc["tasks"].Array, 2)
	assert.Equal(t, JSONObject, doc["nested"].Kind)
	assert.Equal(t, 5.0, doc["nested"].Object["total"].Num)
}

func TestJSONValueAccessorsMissingKeys(t *testing.T) {
	doc := map[string]JSONValue{
		"nickname":  String("A"),
		"completed": Number(4),
		"active":    Bool(true),
	}

	// Отсутствующий ключ — пустое значение, не ошибка
	assert.Equal(t, "", GetString(doc, "нет такого"))
	assert.Equal(t, 0, GetInt(doc, "нет такого"))
	assert.False(t, GetBool(doc, "нет такого"))

	// Ключ с неожиданным типом тоже даёт пустое значение
	assert.Equal(t, "", GetString(doc, "completed"))
	assert.Equal(t, 0, GetInt(doc, "nickname"))

	assert.Equal(t, "A", GetString(doc, "nickname"))
	assert.Equal(t, 4, GetInt(doc, "completed"))
	assert.True(t, GetBool(doc, "active"))
}

func TestJSONValueRoundTrip(t *testing.T) {
	original := map[string]JSONValue{
		"routineTime": String("07:00"),
		"tasks": {Kind: JSONArray, Array: []JSONValue{
			{Kind: JSONObject, Object: map[string]JSONValue{
				"id":       String("t1"),
				"duration": Number(15),
			}},
		}},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded map[string]JSONValue
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}
