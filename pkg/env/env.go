// Package env reads raw process environment variables for the few settings
// that must resolve before envconfig parsing runs, such as the log format.
package env

import "os"

// Get returns the value of key, or fallback when the variable is unset or
// empty.
func Get(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}
