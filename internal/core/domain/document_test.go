package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_CharCount(t *testing.T) {
	doc := Document{
		Path: "/tmp/act.pdf",
		Pages: []Page{
			{Number: 1, Text: "Section 25F"},
			{Number: 2, Text: "छंटनी"},
		},
	}

	assert.Equal(t, 16, doc.CharCount())
}

func TestDocument_CharCount_Empty(t *testing.T) {
	doc := Document{}
	assert.Equal(t, 0, doc.CharCount())
}

func TestChunk_Len(t *testing.T) {
	assert.Equal(t, 5, Chunk{Text: "hello"}.Len())
	assert.Equal(t, 5, Chunk{Text: "छंटनी"}.Len())
	assert.Equal(t, 0, Chunk{}.Len())
}

func TestChunk_Excerpt(t *testing.T) {
	c := Chunk{Text: "conditions precedent to retrenchment"}

	tests := []struct {
		name     string
		n        int
		expected string
	}{
		{"shorter than text", 10, "conditions"},
		{"longer than text", 500, "conditions precedent to retrenchment"},
		{"exact length", 36, "conditions precedent to retrenchment"},
		{"negative returns all", -1, "conditions precedent to retrenchment"},
		{"zero", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Excerpt(tt.n))
		})
	}
}

func TestChunk_Excerpt_MultiByte(t *testing.T) {
	c := Chunk{Text: "छंटनी नियम"}
	assert.Equal(t, "छंटनी", c.Excerpt(5))
}
