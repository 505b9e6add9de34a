package client

// TriState is a decrypted boolean that may not have been decrypted.
type TriState int8

const (
	Unknown TriState = iota
	False
	True
)

// TriStateOf maps a decrypted value: 1 is true, anything else false.
func TriStateOf(v uint64) TriState {
	if v == 1 {
		return True
	}
	return False
}

// Known reports whether the value was decrypted.
func (t TriState) Known() bool { return t != Unknown }

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}
