package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/idecore/internal/errors"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		target  string
		loc     Location
		hasLoc  bool
		wantErr bool
	}{
		{name: "plain file", raw: "file:///src/main.c", target: "file:///src/main.c"},
		{name: "with location", raw: "file:///src/main.c#L4_10", target: "file:///src/main.c", loc: Location{Line: 4, Column: 10}, hasLoc: true},
		{name: "unknown fragment dropped", raw: "file:///src/main.c#section", target: "file:///src/main.c"},
		{name: "half location dropped", raw: "file:///src/main.c#L4", target: "file:///src/main.c"},
		{name: "remote", raw: "sftp://build.local/home/me/app.c#L1_0", target: "sftp://build.local/home/me/app.c", loc: Location{Line: 1}, hasLoc: true},
		{name: "relative path", raw: "src/main.c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ParseItem(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, item.Target())
			loc, ok := item.Location()
			assert.Equal(t, tt.hasLoc, ok)
			assert.Equal(t, tt.loc, loc)
		})
	}
}

func TestItem_URIRoundTrip(t *testing.T) {
	item, err := NewItemAt("file:///a.c", Location{Line: 12, Column: 3})
	require.NoError(t, err)
	assert.Equal(t, "file:///a.c#L12_3", item.URI())
	assert.Equal(t, item.URI(), item.String())

	again := MustParseItem(item.URI())
	assert.Equal(t, item.URI(), again.URI())
	assert.Equal(t, item.Key(), again.Key())
	assert.NotEqual(t, item.ID(), again.ID())
}

func TestItem_Key(t *testing.T) {
	a := MustParseItem("file:///a.c#L1_0")
	b := MustParseItem("file:///a.c#L90_2")
	c := MustParseItem("file:///b.c")

	assert.Equal(t, Key{Scheme: "file", Path: "/a.c"}, a.Key())
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestLineProximityChainer(t *testing.T) {
	c := LineProximityChainer{MaxLines: 5}

	tests := []struct {
		name string
		prev string
		next string
		want bool
	}{
		{"same line", "file:///a.c#L10_0", "file:///a.c#L10_4", true},
		{"within distance", "file:///a.c#L10_0", "file:///a.c#L14_0", true},
		{"within distance upward", "file:///a.c#L14_0", "file:///a.c#L10_0", true},
		{"at distance", "file:///a.c#L10_0", "file:///a.c#L15_0", false},
		{"different file", "file:///a.c#L10_0", "file:///b.c#L10_0", false},
		{"both without location", "file:///a.c", "file:///a.c", true},
		{"one without location", "file:///a.c", "file:///a.c#L1_0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Chainable(MustParseItem(tt.prev), MustParseItem(tt.next)))
		})
	}

	assert.False(t, c.Chainable(nil, MustParseItem("file:///a.c")))
	assert.False(t, NeverChain.Chainable(MustParseItem("file:///a.c"), MustParseItem("file:///a.c")))
}
