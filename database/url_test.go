package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		databaseName string
		expected     string
	}{
		{
			name:         "empty database name returns base",
			baseURL:      "postgres://u:p@localhost:5432",
			databaseName: "",
			expected:     "postgres://u:p@localhost:5432",
		},
		{
			name:         "appends name and sslmode",
			baseURL:      "postgres://u:p@localhost:5432",
			databaseName: "giveaway",
			expected:     "postgres://u:p@localhost:5432/giveaway?sslmode=disable",
		},
		{
			name:         "trailing slash",
			baseURL:      "postgres://u:p@localhost:5432/",
			databaseName: "giveaway",
			expected:     "postgres://u:p@localhost:5432/giveaway?sslmode=disable",
		},
		{
			name:         "keeps existing sslmode",
			baseURL:      "postgres://u:p@db:5432?sslmode=require",
			databaseName: "giveaway",
			expected:     "postgres://u:p@db:5432/giveaway?sslmode=require",
		},
		{
			name:         "keeps other params",
			baseURL:      "postgres://u:p@db:5432?connect_timeout=5",
			databaseName: "giveaway",
			expected:     "postgres://u:p@db:5432/giveaway?connect_timeout=5&sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.databaseName))
		})
	}
}
