package frame

// IsPong reports whether f itself is a pong payload.
func IsPong(f Frame) bool {
	ns, _ := f[FieldNamespace].(string)
	el, _ := f[FieldElement].(string)
	return ns == NamespaceAtmosphere && el == ElementPong
}

// ContainsPong reports whether f is a pong or carries one anywhere in its
// nested payloads.
func ContainsPong(f Frame) bool {
	if IsPong(f) {
		return true
	}
	for _, p := range payloadsOf(f) {
		if ContainsPong(p) {
			return true
		}
	}
	return false
}

// IsSolePong reports whether the pong is the only thing f carries, in which
// case nothing else needs to be delivered for the frame.
func IsSolePong(f Frame) bool {
	if IsPong(f) {
		return true
	}
	raw, ok := f[FieldPayloads].([]any)
	if !ok || len(raw) != 1 {
		return false
	}
	inner, ok := AsFrame(raw[0])
	return ok && IsSolePong(inner)
}
