package report

import "fmt"

const bytesPerGB = 1024 * 1024 * 1024

// Summary describes the number of files in a batch and their total size.
func Summary(files int, totalBytes int64) string {
	return fmt.Sprintf("Found %d media files (%.2f GB)", files, float64(totalBytes)/bytesPerGB)
}
