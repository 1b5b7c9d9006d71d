package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookhub/store-service/store/internal/model"
)

func TestUpdateRelationRequest_RatingNullVsAbsent(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name string
		body string
		want model.OptInt16
	}{
		{
			name: "absent",
			body: `{"like":true}`,
			want: model.OptInt16{},
		},
		{
			name: "explicit null",
			body: `{"rating":null}`,
			want: model.OptInt16{Set: true},
		},
		{
			name: "value",
			body: `{"rating":4}`,
			want: model.OptInt16{Set: true, Valid: true, Value: 4},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var req model.UpdateRelationRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			require.Equal(t, tt.want, req.Rating)
		})
	}
}

func TestOptInt16_RejectsNonNumeric(t *testing.T) {
	t.Parallel()
	var req model.UpdateRelationRequest
	require.Error(t, json.Unmarshal([]byte(`{"rating":"five"}`), &req))
}

func TestOptInt16_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(model.OptInt16{Set: true, Valid: true, Value: 5})
	require.NoError(t, err)
	require.Equal(t, `5`, string(out))

	out, err = json.Marshal(model.OptInt16{Set: true})
	require.NoError(t, err)
	require.Equal(t, `null`, string(out))
}
