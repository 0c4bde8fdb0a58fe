package hostvm

import (
	"fmt"

	"microvium/internal/diag"
)

// Error is hostvm's contribution to the six-kind error design (spec.md
// §7): a script that runs off the end of a block, indexes past a local
// slot, or calls a non-callable value is an InternalCompileError (a
// compiler bug let it through); a misused host API — an unknown export
// id, a malformed import — is InvalidOperation. Importing the same host
// function id twice is not an error: the existing binding is reused.
type Error struct {
	Code diag.Code
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code.ID(), e.Msg) }

func errf(code diag.Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}
