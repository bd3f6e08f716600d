package stacktrace

import "strings"

// InternalPaths returns the "internal/..../file.go:line" frames of a raw
// debug.Stack dump, dropping runtime and third-party frames.
func InternalPaths(stack []byte) []string {
	var paths []string

	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)

		_, rest, found := strings.Cut(line, "/internal/")
		if !found {
			continue
		}

		file, _, _ := strings.Cut(rest, " ")
		if !strings.Contains(file, ".go:") {
			continue
		}

		paths = append(paths, "internal/"+file)
	}

	return paths
}
