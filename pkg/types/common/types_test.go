package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      ID
		wantErr string
	}{
		{"valid", ID("550e8400-e29b-41d4-a716-446655440000"), ""},
		{"generated", NewID(), ""},
		{"empty", ID(""), "cannot be empty"},
		{"malformed", ID("not-a-uuid"), "invalid ID format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTimestamp_JSON(t *testing.T) {
	ts := Timestamp(time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-10-16T10:00:00Z"`, string(data))

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ts.Time().Equal(back.Time()))

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &back))
	assert.Error(t, json.Unmarshal([]byte(`12`), &back))
}

func TestResponses(t *testing.T) {
	ok := NewSuccessResponse(map[string]int{"atoms": 3})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)

	bad := NewErrorResponse("NOTATION_001", "unexpected character")
	assert.False(t, bad.Success)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "NOTATION_001", bad.Error.Code)

	data, err := json.Marshal(bad)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"data"`)
}
