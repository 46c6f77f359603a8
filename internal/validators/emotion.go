package validators

// oppositePairs is the single authoritative "opposite emotion category"
// table, resolving spec.md's Open Question about which membership to
// use (the source carried more than one, slightly different, table).
// Every validator that needs opposite-pair semantics — V1's flip
// check, V4's per-scene switch count, V5's continuity check — reads
// this same map rather than keeping its own copy.
var oppositePairs = map[string]string{
	"positive":   "negative",
	"negative":   "positive",
	"conflict":   "resolution",
	"resolution": "conflict",
}

// isOpposite reports whether a and b are a declared opposite pair.
func isOpposite(a, b string) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	return oppositePairs[a] == b
}
