package domain

// Zero overwrites key material in place. Callers zero every key copy once the
// cipher operation that needed it has returned.
func Zero(b []byte) {
	clear(b)
}
