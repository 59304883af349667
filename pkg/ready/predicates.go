package ready

import (
	"regexp"
	"strings"

	"github.com/cuemby/dockhand/pkg/stream"
)

// ContainsMarker is ready the first time a line contains marker as a
// substring, e.g. waiting for postgres to print "database system is
// ready to accept connections".
func ContainsMarker(marker string) stream.Predicate[string] {
	return func(_ *stream.OutputStream[string], line string) bool {
		return strings.Contains(line, marker)
	}
}

// MatchesRegexp is ready the first time a line matches re.
func MatchesRegexp(re *regexp.Regexp) stream.Predicate[string] {
	return func(_ *stream.OutputStream[string], line string) bool {
		return re.MatchString(line)
	}
}

// LineCount is ready once at least n lines have ever been appended
// (using logical length, so it is unaffected by ring-buffer eviction).
func LineCount(n int) stream.Predicate[string] {
	return func(s *stream.OutputStream[string], _ string) bool {
		return s.LogicalLength() >= int64(n)
	}
}

// ByteThreshold is ready once at least n bytes have ever been appended.
func ByteThreshold(n int) stream.Predicate[byte] {
	return func(s *stream.OutputStream[byte], _ byte) bool {
		return s.LogicalLength() >= int64(n)
	}
}
