// Package envutil reads service configuration from the process environment.
// Mandatory readers terminate the process through the logger when the
// variable is missing or malformed; optional readers degrade quietly.
// Boolean variables are the literal string "1".
package envutil

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// fatalf is swapped out by tests; the default kills the process.
var fatalf = func(format string, args ...interface{}) {
	log.Fatal().Msgf(format, args...)
}

// MandatoryString returns the value of key, terminating when unset.
func MandatoryString(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		fatalf("Cannot find %s, exiting...", key)
	}
	return value
}

// MandatoryInt returns the integer value of key, terminating when unset or
// not an integer.
func MandatoryInt(key string) int64 {
	value, err := strconv.ParseInt(MandatoryString(key), 10, 64)
	if err != nil {
		fatalf("Invalid integer in %s, exiting...", key)
	}
	return value
}

// MandatoryBool reports whether key holds the integer 1, terminating when
// unset or not an integer.
func MandatoryBool(key string) bool {
	return MandatoryInt(key) == 1
}

// String returns the value of key and whether it was set.
func String(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Int returns the integer value of key; ok is false when unset or not an
// integer.
func Int(key string) (int64, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// Bool reports whether key holds the integer 1. Unset or malformed values
// read as false.
func Bool(key string) bool {
	value, ok := Int(key)
	return ok && value == 1
}

// ExecutableName returns the file name of the running binary, or an empty
// string when it cannot be resolved.
func ExecutableName() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Base(path)
}
