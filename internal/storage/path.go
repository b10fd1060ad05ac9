package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const resultsRoot = "results"

var resultIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

// ResultKey places an archived answer under results/YYYY/MM/DD/<id>.parquet, dated in UTC.
func ResultKey(id string, at time.Time) (string, error) {
	if !resultIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid result id: %q", id)
	}
	ts := at.UTC()
	return path.Join(
		resultsRoot,
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", ts.Month()),
		fmt.Sprintf("%02d", ts.Day()),
		id+".parquet",
	), nil
}

// IsResultKey reports whether key has the shape ResultKey produces.
func IsResultKey(key string) bool {
	dir, file := path.Split(key)
	if path.Ext(file) != ".parquet" || !resultIDPattern.MatchString(file[:len(file)-len(".parquet")]) {
		return false
	}
	matched, _ := path.Match(resultsRoot+"/[0-9][0-9][0-9][0-9]/[0-9][0-9]/[0-9][0-9]/", dir)
	return matched
}
