package seed

// Merge deep-merges source into target in place and returns target.
//
// For every key in source: when both sides hold a mapping the two mappings
// are merged recursively, otherwise the source value replaces the target
// value wholesale. Sequences are never merged element-wise. Keys present only
// in target are left untouched. Values taken from source are copied, so the
// caller may keep using source afterwards.
func Merge(target, source map[string]any) map[string]any {
	if target == nil {
		target = make(map[string]any, len(source))
	}
	for key, sv := range source {
		sm, sok := asMap(sv)
		tm, tok := asMap(target[key])
		if sok && tok {
			target[key] = Merge(tm, sm)
			continue
		}
		target[key] = CloneValue(sv)
	}
	return target
}

// MergeValue merges an arbitrary decoded value into target. A source that
// is not a mapping leaves target unchanged.
func MergeValue(target map[string]any, source any) map[string]any {
	sm, ok := asMap(source)
	if !ok {
		return target
	}
	return Merge(target, sm)
}
