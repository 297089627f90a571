// Package metrickey canonicalizes metric names and tag sets into stable
// string keys.
//
// Two samples recorded with the same name and the same tag set must land
// in the same per-key structures regardless of the order the tags were
// supplied in, so the tag half of a key is always serialized with its
// keys sorted lexicographically. A metric recorded with no tags still
// gets the separator, which keeps "name with no tags" distinct from any
// bare-name collision.
package metrickey

import (
	"sort"
	"strings"
)

// sep separates the metric name from its serialized tag set, and each
// tag key from its value.
const sep = ":"

// Canonical returns the canonical key for a metric name and tag set.
//
// The format is "name:k1:v1,k2:v2" with tag keys sorted. An empty or
// nil tag set yields "name:".
func Canonical(name string, tags map[string]string) string {
	return name + sep + TagString(tags)
}

// TagString serializes a tag set as "k:v" pairs joined by commas, with
// keys sorted lexicographically. It is the forward half of the codec;
// ParseTags is its exact inverse.
func TagString(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString(sep)
		sb.WriteString(tags[k])
	}
	return sb.String()
}

// ParseTags parses a tag string produced by TagString back into a map.
//
// An empty string yields an empty, non-nil map so callers can treat the
// result uniformly. Malformed pairs (no separator) are kept as a key
// with an empty value rather than dropped, so no information is lost on
// round-trips.
func ParseTags(tagString string) map[string]string {
	tags := make(map[string]string)
	if tagString == "" {
		return tags
	}

	for _, pair := range strings.Split(tagString, ",") {
		k, v, found := strings.Cut(pair, sep)
		if !found {
			tags[pair] = ""
			continue
		}
		tags[k] = v
	}
	return tags
}

// Split breaks a canonical key back into its metric name and tag string.
// The name is everything before the first separator; tag values may
// themselves contain separators, the name must not.
func Split(key string) (name, tagString string) {
	name, tagString, _ = strings.Cut(key, sep)
	return name, tagString
}
