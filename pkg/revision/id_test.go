package revision

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	require.True(t, Known(5).Equal(Known(5)))
	require.False(t, Known(5).Equal(Known(6)))
	require.True(t, Unknown.Equal(Unknown))
	require.False(t, Unknown.Equal(Known(0)))
}

func TestLess(t *testing.T) {
	require.True(t, Unknown.Less(Known(1)))
	require.False(t, Known(1).Less(Unknown))
	require.True(t, Known(1).Less(Known(2)))
	require.False(t, Known(2).Less(Known(1)))
	require.False(t, Unknown.Less(Unknown))
}

func TestMarshalUnmarshal_Known(t *testing.T) {
	data, err := json.Marshal(Known(42))
	require.NoError(t, err)
	require.Equal(t, "42", string(data))

	var got ID
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, got.Equal(Known(42)))
}

func TestMarshalUnmarshal_Unknown(t *testing.T) {
	data, err := json.Marshal(Unknown)
	require.NoError(t, err)
	require.Equal(t, `"unknown"`, string(data))

	var got ID
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, got.Equal(Unknown))
}

func TestUnmarshal_UnrecognizedStringErrors(t *testing.T) {
	var got ID
	err := json.Unmarshal([]byte(`"bogus"`), &got)
	require.Error(t, err)
}

func TestString(t *testing.T) {
	require.Equal(t, "unknown", Unknown.String())
	require.Equal(t, "7", Known(7).String())
}
