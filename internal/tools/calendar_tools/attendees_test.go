package calendar_tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendeeList_Split(t *testing.T) {
	var list attendeeList
	require.NoError(t, json.Unmarshal([]byte(`[
		"Alice@Example.com",
		{"email": "bob@example.com"},
		{"value": " carol@example.org "},
		{"address": "dave@example.net"},
		"alice@example.com",
		"",
		"not-an-email",
		{"name": "Erin"},
		42,
		"frank@localhost"
	]`), &list))

	valid, invalid := list.split()

	assert.Equal(t, []string{
		"alice@example.com",
		"bob@example.com",
		"carol@example.org",
		"dave@example.net",
	}, valid)
	assert.Equal(t, []string{
		"not-an-email",
		`{"name": "Erin"}`,
		"42",
		"frank@localhost",
	}, invalid)
}

func TestAttendeeList_Empty(t *testing.T) {
	valid, invalid := attendeeList(nil).split()
	assert.NotNil(t, valid)
	assert.Empty(t, valid)
	assert.Empty(t, invalid)
}

func TestNewlyAdded(t *testing.T) {
	tests := []struct {
		name   string
		before []string
		after  []string
		want   []string
	}{
		{name: "nothing before", before: nil, after: []string{"a@x.io"}, want: []string{"a@x.io"}},
		{name: "case insensitive", before: []string{"A@X.io"}, after: []string{"a@x.io"}, want: nil},
		{name: "one new", before: []string{"a@x.io"}, after: []string{"a@x.io", "b@x.io"}, want: []string{"b@x.io"}},
		{name: "removal only", before: []string{"a@x.io", "b@x.io"}, after: []string{"a@x.io"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newlyAdded(tt.before, tt.after))
		})
	}
}

func TestEventID_Unmarshal(t *testing.T) {
	var args detailArgs
	require.NoError(t, json.Unmarshal([]byte(`{"id": 12345678}`), &args))
	assert.Equal(t, eventID("12345678"), args.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": " abc "}`), &args))
	assert.Equal(t, eventID("abc"), args.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id": true}`), &args))
}

func TestTarget_Normalized(t *testing.T) {
	assert.Equal(t, target{Index: 3}, target{ID: "3"}.normalized())
	assert.Equal(t, target{ID: "123456"}, target{ID: "123456"}.normalized())
	assert.Equal(t, target{ID: "0"}, target{ID: "0"}.normalized())
	assert.Equal(t, target{ID: "7", Index: 2}, target{ID: "7", Index: 2}.normalized())
	assert.Equal(t, target{ID: "a1"}, target{ID: "a1"}.normalized())
}
