package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	tests := []struct {
		name          string
		number, limit int
		want          Page
	}{
		{"defaults", 0, 0, Page{Number: 1, Limit: DefaultPageLimit}},
		{"negative", -3, -1, Page{Number: 1, Limit: DefaultPageLimit}},
		{"capped", 2, 1000, Page{Number: 2, Limit: MaxPageLimit}},
		{"kept", 4, 3, Page{Number: 4, Limit: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPage(tt.number, tt.limit))
		})
	}
}

func TestPageSkip(t *testing.T) {
	assert.Equal(t, 0, NewPage(1, 10).Skip())
	assert.Equal(t, 6, NewPage(3, 3).Skip())
}

func TestNewMetadataTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{7, 3, 3},
	}
	for _, tt := range tests {
		md := NewMetadata(NewPage(1, tt.limit), tt.total)
		assert.Equal(t, tt.want, md.TotalPages, "total=%d limit=%d", tt.total, tt.limit)
		assert.Equal(t, tt.total, md.Total)
	}
}
