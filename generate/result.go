package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir/value"
)

// Ref is an LLVM value paired with the MIR reference type it was produced
// as.  The reference type carries the ownership the holder has over the value.
type Ref struct {
	LE   value.Value
	Type *mir.Reference
}

// Result is the outcome of translating an expression: either a value or the
// divergence marker, which means the expression left nothing behind that may
// be used (eg. it returned, or it consumed its operands entirely).
type Result struct {
	ref *Ref
}

// Never returns the divergence marker.
func Never() Result {
	return Result{}
}

// Yield returns a result holding a value of the given type.
func Yield(le value.Value, typ *mir.Reference) Result {
	return Result{ref: &Ref{LE: le, Type: typ}}
}

// IsNever returns whether the result is the divergence marker.
func (r Result) IsNever() bool {
	return r.ref == nil
}

// Ref returns the value of the result.  Asking the divergence marker for its
// value is an internal compiler error.
func (r Result) Ref() *Ref {
	if r.ref == nil {
		report.ICE("value of a divergent expression was used")
	}

	return r.ref
}

// -----------------------------------------------------------------------------

// operandScope tracks the references an expression takes over from its
// operands.  Closing the scope releases every taken reference that was not
// handed off, so no exit path can forget a discard.
type operandScope struct {
	g     *Generator
	fs    *FunctionState
	taken []*Ref
}

// openScope opens a new operand scope.  It should be closed with a deferred
// call to close.
func (g *Generator) openScope(fs *FunctionState) *operandScope {
	return &operandScope{g: g, fs: fs}
}

// take registers the value of r to be released when the scope closes.
func (sc *operandScope) take(r Result) *Ref {
	ref := r.Ref()
	sc.taken = append(sc.taken, ref)
	return ref
}

// close discards every reference still held by the scope in the order they
// were taken.  Nothing is emitted if control never reaches the end of the
// scope.
func (sc *operandScope) close() {
	if sc.fs.terminated() {
		sc.taken = nil
		return
	}

	for _, ref := range sc.taken {
		sc.g.discard(sc.fs, ref)
	}

	sc.taken = nil
}
