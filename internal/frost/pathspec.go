package frost

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// supportedExtensions lists the source formats the archive layer accepts,
// keyed by lowercase extension including the dot.
var supportedExtensions = map[string]bool{
	".csv":     true,
	".xls":     true,
	".xlsx":    true,
	".xlsm":    true,
	".parquet": true,
	".pq":      true,
}

// Supported reports whether path has a recognized tabular extension.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions returns the accepted extensions in display order.
func SupportedExtensions() []string {
	return []string{".csv", ".xls", ".xlsx", ".xlsm", ".parquet", ".pq"}
}

var artifactNameRe = regexp.MustCompile(`^(.+)_v(\d+)\.(parquet|pq)$`)

// ParsePathSpec splits a user-supplied spec into path and version:
// "data.csv@3" yields ("data.csv", 3). A spec without a positive numeric
// @-suffix is returned whole with version 0, so filenames containing '@'
// still resolve.
func ParsePathSpec(spec string) (string, int) {
	i := strings.LastIndex(spec, "@")
	if i < 0 {
		return spec, 0
	}
	v, err := strconv.Atoi(spec[i+1:])
	if err != nil || v <= 0 {
		return spec, 0
	}
	return spec[:i], v
}

// ParseArtifactName recognizes artifact filenames like "report_v3.parquet"
// and extracts the original stem and version.
func ParseArtifactName(name string) (stem string, version int, ok bool) {
	m := artifactNameRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", 0, false
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], v, true
}
