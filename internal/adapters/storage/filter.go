package storage

import (
	"path/filepath"
	"strings"
)

// sourceExtensions are the file types that make up an ingestable dataset:
// administrative GeoJSON plus the members of a shapefile set.
var sourceExtensions = map[string]bool{
	".geojson": true,
	".shp":     true,
	".dbf":     true,
	".shx":     true,
	".prj":     true,
	".cpg":     true,
}

// isSourceFile reports whether a key names a file worth mirroring into
// the ingestion spool.
func isSourceFile(key string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(key))]
}
