package main

import (
	"os"
	"time"
)

// defaultMetadataFile is looked up when no metadata file is configured.
const defaultMetadataFile = "custom-metadata.txt"

// LoadDefaultMetadata returns the content of the metadata template file at
// path, or a placeholder template dated today when the file is missing or
// unreadable.
func LoadDefaultMetadata(path string) string {
	return loadDefaultMetadataAt(path, time.Now())
}

func loadDefaultMetadataAt(path string, now time.Time) string {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	return fallbackMetadata(now)
}

func fallbackMetadata(now time.Time) string {
	return "# Custom metadata\n" +
		"# Author: Your Name\n" +
		"# Organization: Your Organization\n" +
		"# Date: " + now.Format("2006-01-02")
}
