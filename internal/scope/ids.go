package scope

type (
	BindingID uint32
	ScopeID   uint32
)

const (
	NoBindingID BindingID = 0
	NoScopeID   ScopeID   = 0
)

func (id BindingID) IsValid() bool { return id != NoBindingID }
func (id ScopeID) IsValid() bool   { return id != NoScopeID }
