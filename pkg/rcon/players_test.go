package rcon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlayerList(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected []Player
	}{
		{
			name:     "empty response",
			data:     "",
			expected: []Player{},
		},
		{
			name:     "no players sentinel",
			data:     "No Players Connected",
			expected: []Player{},
		},
		{
			name: "single player",
			data: "0. Alice, 7656119",
			expected: []Player{
				{ID: 0, Name: "Alice", SteamID: "7656119"},
			},
		},
		{
			name: "multiple players with blank lines",
			data: "0. Alice, 76561198000000001\n\n1. Bob, 76561198000000002\n",
			expected: []Player{
				{ID: 0, Name: "Alice", SteamID: "76561198000000001"},
				{ID: 1, Name: "Bob", SteamID: "76561198000000002"},
			},
		},
		{
			name: "whitespace around fields",
			data: "  2.   Charlie ,  76561198000000003  ",
			expected: []Player{
				{ID: 2, Name: "Charlie", SteamID: "76561198000000003"},
			},
		},
		{
			name: "name containing a dot",
			data: "3. Dr. Who, 76561198000000004",
			expected: []Player{
				{ID: 3, Name: "Dr. Who", SteamID: "76561198000000004"},
			},
		},
		{
			name:     "malformed lines are skipped",
			data:     "garbage\nnot-a-number. Name, 123\n4 missing dot, 123",
			expected: []Player{},
		},
		{
			name: "malformed line between valid ones",
			data: "0. Alice, 111\nnonsense\n1. Bob, 222",
			expected: []Player{
				{ID: 0, Name: "Alice", SteamID: "111"},
				{ID: 1, Name: "Bob", SteamID: "222"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePlayerList(tt.data))
		})
	}
}
