package gtrace

import (
	"errors"
	"fmt"
)

const (
	// Epsilon is the default minimum distance along a ray for a crossing to count as a hit.
	// Prevents rays spawned on a surface from hitting that same surface.
	Epsilon = 1e-6
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization or transformation matrix determinants.
	epstol = 1e-12
)

// Flags is a bitmask of values to control the functioning of the [Builder] type.
type Flags uint64

const (
	// FlagNoDimensionPanic makes the Builder accumulate errors instead of
	// panicking when a surface is created with invalid arguments.
	// Errors can then be retrieved with [Builder.Err].
	FlagNoDimensionPanic Flags = 1 << iota
)

// Builder creates surfaces and CSG combinations of them.
// Provides error handling strategies with panics or error accumulation during surface creation.
type Builder struct {
	flags     Flags
	accumErrs []error
}

// Flags returns the flags of the Builder. See [Flags].
func (bld *Builder) Flags() Flags {
	return bld.flags
}

// SetFlags sets the Builder's flags, replacing the previous value.
func (bld *Builder) SetFlags(f Flags) {
	bld.flags = f
}

// Err returns the errors accumulated since the last [Builder.ClearErrors] call,
// or nil if there are none.
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

// ClearErrors discards accumulated errors.
func (bld *Builder) ClearErrors() {
	bld.accumErrs = bld.accumErrs[:0]
}

func (bld *Builder) shapeErrorf(msg string, args ...any) {
	if bld.flags&FlagNoDimensionPanic == 0 {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func (*Builder) nilsurface(msg string) {
	panic("nil Surface argument: " + msg)
}
