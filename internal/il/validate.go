package il

import (
	"errors"
	"fmt"
)

// Validate checks IL module invariants the way the teacher's MIR validator
// checks its own: independently of whatever bookkeeping the emitter (here,
// Cursor) did, so a bug in Cursor itself would still be caught. It also
// fills in Function.MaxStackDepth (spec.md §4.2's compute_max_stack_depth),
// recomputed from scratch rather than trusted from any running tally.
func Validate(u *Unit) error {
	if u == nil {
		return nil
	}
	var errs []error
	if !u.EntryFn.IsValid() || int(u.EntryFn) >= len(u.Funcs) {
		errs = append(errs, fmt.Errorf("unit: entry function %d does not exist", u.EntryFn))
	}
	for i := range u.Funcs {
		f := &u.Funcs[i]
		if err := validateFunc(u, f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(u *Unit, f *Function) error {
	var errs []error

	if !f.Entry.IsValid() || f.Block(f.Entry) == nil {
		errs = append(errs, fmt.Errorf("entry block %d does not exist", f.Entry))
	}

	if err := validateBlocksStarted(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateOperandIndices(u, f); err != nil {
		errs = append(errs, err)
	}

	maxDepth, err := validateStackDepths(f)
	if err != nil {
		errs = append(errs, err)
	}
	f.MaxStackDepth = maxDepth

	return errors.Join(errs...)
}

// validateBlocksStarted checks that every predeclared block was actually
// populated. Nothing in this compiler's lowering predeclares a block it
// doesn't immediately start, so a Created == false block here means the
// lowering pass itself has a bug, not a legitimately dead branch.
func validateBlocksStarted(f *Function) error {
	var errs []error
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if !b.Created {
			errs = append(errs, fmt.Errorf("bb%d: predeclared block never started", i))
			continue
		}
		if !b.terminated() {
			errs = append(errs, fmt.Errorf("bb%d: block has no terminator", i))
		}
	}
	return errors.Join(errs...)
}

// validateBlockTargets checks that every Jump/Branch target names a block
// that actually exists in this function.
func validateBlockTargets(f *Function) error {
	var errs []error
	exists := func(id BlockID) bool { return id.IsValid() && int(id) < len(f.Blocks) }

	for i := range f.Blocks {
		b := &f.Blocks[i]
		if len(b.Ops) == 0 {
			continue
		}
		last := b.Ops[len(b.Ops)-1]
		switch last.Code {
		case OpJump:
			if !exists(last.Targets[0]) {
				errs = append(errs, fmt.Errorf("bb%d: jump target bb%d does not exist", i, last.Targets[0]))
			}
		case OpBranch:
			if !exists(last.Targets[0]) {
				errs = append(errs, fmt.Errorf("bb%d: branch then-target bb%d does not exist", i, last.Targets[0]))
			}
			if !exists(last.Targets[1]) {
				errs = append(errs, fmt.Errorf("bb%d: branch else-target bb%d does not exist", i, last.Targets[1]))
			}
		}
	}
	return errors.Join(errs...)
}

// validateOperandIndices checks the operand fields the opcode table can't
// express shape constraints for on its own: slot indices against this
// function's declared slot counts, and a FunctionLiteral's Index against
// the unit's actual function table.
func validateOperandIndices(u *Unit, f *Function) error {
	var errs []error
	// Argument slot 0 is `this`; slots 1..ParamCount are the declared
	// parameters (compileFunc's paramIndex numbering), so the valid range
	// has ParamCount+1 members.
	maxArg := uint32(f.ParamCount)

	for i := range f.Blocks {
		for j, op := range f.Blocks[i].Ops {
			name := "?"
			if info, ok := Info(op.Code); ok {
				name = info.Name
			}
			ctx := fmt.Sprintf("bb%d instr %d (%s)", i, j, name)
			switch op.Code {
			case OpLoadVar, OpStoreVar:
				if op.Index >= uint32(f.LocalSlotCount) {
					errs = append(errs, fmt.Errorf("%s: local slot %d out of range (%d declared)", ctx, op.Index, f.LocalSlotCount))
				}
			case OpLoadArg:
				if op.Index > maxArg {
					errs = append(errs, fmt.Errorf("%s: argument slot %d out of range (%d declared)", ctx, op.Index, maxArg))
				}
			case OpFunctionLiteral:
				if int(op.Index) >= len(u.Funcs) {
					errs = append(errs, fmt.Errorf("%s: function literal %d does not exist", ctx, op.Index))
				}
			case OpPopN:
				if int(op.Count) > 0 && uint32(op.Count) > uint32(f.LocalSlotCount)+uint32(f.ParamCount)+1 {
					errs = append(errs, fmt.Errorf("%s: pops %d values, implausible for this frame", ctx, op.Count))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// validateStackDepths re-derives every operation's before/after operand
// stack depth from each block's EntryDepth and the opcode table, rather
// than trusting Cursor's own stamps, and checks every block-to-block edge
// agrees on depth (spec.md §4.2's "asserts that the source and
// destination stack depths agree"). It returns the function's true
// maximum depth across every instruction boundary.
func validateStackDepths(f *Function) (int, error) {
	var errs []error
	maxDepth := 0

	for i := range f.Blocks {
		b := &f.Blocks[i]
		if b.EntryDepth < 0 {
			errs = append(errs, fmt.Errorf("bb%d: entry depth was never fixed", i))
			continue
		}
		if b.EntryDepth > maxDepth {
			maxDepth = b.EntryDepth
		}
		depth := b.EntryDepth
		for j, op := range b.Ops {
			info, ok := Info(op.Code)
			if !ok {
				errs = append(errs, fmt.Errorf("bb%d instr %d: unknown opcode %d", i, j, op.Code))
				continue
			}
			if op.StackDepthBefore != depth {
				errs = append(errs, fmt.Errorf("bb%d instr %d (%s): recorded entry depth %d, computed %d",
					i, j, info.Name, op.StackDepthBefore, depth))
			}
			depth += info.StackDelta(op)
			if depth < 0 {
				errs = append(errs, fmt.Errorf("bb%d instr %d (%s): stack underflow", i, j, info.Name))
				depth = 0
			}
			if depth > maxDepth {
				maxDepth = depth
			}
			if op.StackDepthAfter != depth {
				errs = append(errs, fmt.Errorf("bb%d instr %d (%s): recorded exit depth %d, computed %d",
					i, j, info.Name, op.StackDepthAfter, depth))
			}

			switch op.Code {
			case OpJump:
				if err := checkEdgeDepth(f, op.Targets[0], depth); err != nil {
					errs = append(errs, fmt.Errorf("bb%d instr %d: %w", i, j, err))
				}
			case OpBranch:
				if err := checkEdgeDepth(f, op.Targets[0], depth); err != nil {
					errs = append(errs, fmt.Errorf("bb%d instr %d: %w", i, j, err))
				}
				if err := checkEdgeDepth(f, op.Targets[1], depth); err != nil {
					errs = append(errs, fmt.Errorf("bb%d instr %d: %w", i, j, err))
				}
			case OpReturn:
				if depth != 0 {
					errs = append(errs, fmt.Errorf("bb%d instr %d: function body ends %d deep, expected an empty stack", i, j, depth))
				}
			}
		}
	}

	return maxDepth, errors.Join(errs...)
}

func checkEdgeDepth(f *Function, target BlockID, depth int) error {
	b := f.Block(target)
	if b == nil {
		return nil // already reported by validateBlockTargets
	}
	if b.EntryDepth != depth {
		return fmt.Errorf("edge into bb%d expects depth %d, arrives at %d", target, b.EntryDepth, depth)
	}
	return nil
}
