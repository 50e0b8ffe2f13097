// Package storage implements the track package's store interfaces on SQLite.
package storage

import (
	"strings"

	"github.com/crisisops/sitrack/track"
)

// placeholders returns a comma-joined list of n SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func recordIDArgs(ids []track.RecordID) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}

func trackIDArgs(ids []track.TrackID) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}

func locationIDArgs(ids []track.LocationID) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}
