package database

import (
	"fmt"
	"net/url"
	"strings"
)

// ConstructDatabaseURL joins a server URL and a database name and defaults
// sslmode to disable. An empty databaseName returns baseURL unchanged.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, _ := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	// trailing slash may sit before the query string
	base = strings.TrimRight(base, "/")

	values, err := url.ParseQuery(query)
	if err != nil {
		values = url.Values{}
	}
	if values.Get("sslmode") == "" {
		values.Set("sslmode", "disable")
	}

	return fmt.Sprintf("%s/%s?%s", base, databaseName, values.Encode())
}
