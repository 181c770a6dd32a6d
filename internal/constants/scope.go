package constants

// Scope selects which run-history database a command uses.
type Scope string

const (
	// ScopeLocal keeps history in the output directory of the batch.
	ScopeLocal Scope = "local"

	// ScopeGlobal keeps history under ~/.artcheck.
	ScopeGlobal Scope = "global"
)

// Valid returns true if the scope is a recognized value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLocal, ScopeGlobal:
		return true
	}
	return false
}

// String returns the string representation of the scope.
func (s Scope) String() string {
	return string(s)
}
