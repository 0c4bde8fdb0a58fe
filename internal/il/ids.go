package il

// FuncID and BlockID follow the teacher's mir package convention of
// small signed indices with a negative sentinel, rather than the
// 1-based unsigned arenas used elsewhere in this compiler — the IL unit
// is built once per compilation and never needs the overflow-checked
// growth story the parser/scope arenas do.
type (
	FuncID  int32
	BlockID int32
)

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
)

func (id FuncID) IsValid() bool  { return id >= 0 }
func (id BlockID) IsValid() bool { return id >= 0 }
