package model

import "strings"

const defaultMaxIncludeDepth = 3

var maxIncludeDepth = defaultMaxIncludeDepth

// SetMaxIncludeDepth limits how deep includes may nest. Values below 1
// restore the default. Call it before serving requests.
func SetMaxIncludeDepth(n int) {
	if n < 1 {
		n = defaultMaxIncludeDepth
	}
	maxIncludeDepth = n
}

func MaxIncludeDepth() int {
	return maxIncludeDepth
}

// includeDepth counts the relations on an include path: "group" is 1,
// "roles.permissions" is 2.
func includeDepth(path string) int {
	return strings.Count(path, ".") + 1
}
