package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "vegapanel.data.7", Subject("vegapanel.data", "7"))
}

func TestDecode(t *testing.T) {
	id, frames, err := Decode("vegapanel.data", "vegapanel.data.7", []byte(`[{"refId":"A","fields":[]}]`))
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	require.Len(t, frames, 1)
	assert.Equal(t, "A", frames[0].RefID)
}

func TestDecode_Rejects(t *testing.T) {
	testCases := []struct {
		name    string
		subject string
		data    string
		want    string
	}{
		{name: "wrong prefix", subject: "other.7", data: `[]`, want: "is not of the form"},
		{name: "no panel", subject: "vegapanel.data.", data: `[]`, want: "is not of the form"},
		{name: "nested subject", subject: "vegapanel.data.7.x", data: `[]`, want: "is not of the form"},
		{name: "not frames", subject: "vegapanel.data.7", data: `{"refId":"A"}`, want: "panel '7': decoding frames"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Decode("vegapanel.data", tc.subject, []byte(tc.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
