// Package mir defines the mid-level intermediate representation used by the
// optimization passes. A function body is a graph of basic blocks; each block
// holds straight-line statements and ends in exactly one terminator.
// Block ids are dense indices into Body.Blocks and are never reused.
package mir

import (
	"fmt"
	"strings"
)

// BasicBlock identifies a block in a Body (index into Body.Blocks)
type BasicBlock int

func (b BasicBlock) String() string { return fmt.Sprintf("bb%d", int(b)) }

// Local identifies a local variable; _0 is the return place
type Local int

func (l Local) String() string { return fmt.Sprintf("_%d", int(l)) }

// ReturnPlace is the local holding the function result
const ReturnPlace Local = 0

// --- Places ---

// ProjectionElem is one step of a place projection
type ProjectionElem interface {
	implProjectionElem()
}

// Deref dereferences the projected value
type Deref struct{}

// Field selects a field by position
type Field struct {
	Index int
}

// Index indexes by the value of a local
type Index struct {
	Local Local
}

// ConstantIndex indexes by a fixed offset
type ConstantIndex struct {
	Offset int
}

// Downcast views an enum as one of its variants
type Downcast struct {
	Variant int
}

func (Deref) implProjectionElem()         {}
func (Field) implProjectionElem()         {}
func (Index) implProjectionElem()         {}
func (ConstantIndex) implProjectionElem() {}
func (Downcast) implProjectionElem()      {}

// Place is a storage location: a local plus a projection path.
// Places compare structurally; no aliasing is ever inferred.
type Place struct {
	Local      Local
	Projection []ProjectionElem
}

// LocalPlace returns the place for a bare local
func LocalPlace(l Local) Place {
	return Place{Local: l}
}

// Project returns a new place with elem appended to the projection
func (p Place) Project(elem ProjectionElem) Place {
	proj := make([]ProjectionElem, len(p.Projection), len(p.Projection)+1)
	copy(proj, p.Projection)
	return Place{Local: p.Local, Projection: append(proj, elem)}
}

// Equal reports whether two places name the same location syntactically
func (p Place) Equal(q Place) bool {
	if p.Local != q.Local || len(p.Projection) != len(q.Projection) {
		return false
	}
	for i := range p.Projection {
		if p.Projection[i] != q.Projection[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether writing one place may change the other: one is
// a prefix of the other, up to index elements. An index by a local may name
// any element, so it overlaps every other index. Equal places overlap.
func (p Place) Overlaps(q Place) bool {
	if p.Local != q.Local {
		return false
	}
	n := len(p.Projection)
	if len(q.Projection) < n {
		n = len(q.Projection)
	}
	for i := 0; i < n; i++ {
		if !elemsMayAlias(p.Projection[i], q.Projection[i]) {
			return false
		}
	}
	return true
}

func elemsMayAlias(a, b ProjectionElem) bool {
	if a == b {
		return true
	}
	_, aIdx := a.(Index)
	_, bIdx := b.(Index)
	_, aConst := a.(ConstantIndex)
	_, bConst := b.(ConstantIndex)
	return (aIdx || aConst) && (bIdx || bConst) && (aIdx || bIdx)
}

// IndexedBy reports whether the projection indexes by local l, so that
// writing l changes which location p names.
func (p Place) IndexedBy(l Local) bool {
	for _, elem := range p.Projection {
		if idx, ok := elem.(Index); ok && idx.Local == l {
			return true
		}
	}
	return false
}

// Key returns a canonical string for the place, suitable as a map key
func (p Place) Key() string {
	return p.String()
}

// String renders the place in the printer/loader syntax:
// _1, _1.0, _1.*, _1[_2], _1[3], _1@1
func (p Place) String() string {
	var sb strings.Builder
	sb.WriteString(p.Local.String())
	for _, elem := range p.Projection {
		switch e := elem.(type) {
		case Deref:
			sb.WriteString(".*")
		case Field:
			fmt.Fprintf(&sb, ".%d", e.Index)
		case Index:
			fmt.Fprintf(&sb, "[%s]", e.Local)
		case ConstantIndex:
			fmt.Fprintf(&sb, "[%d]", e.Offset)
		case Downcast:
			fmt.Fprintf(&sb, "@%d", e.Variant)
		}
	}
	return sb.String()
}

// --- Operands ---

// Operand is a value source: a read of a place or an embedded constant
type Operand interface {
	implOperand()
}

// Copy reads a place, leaving it initialized
type Copy struct {
	Place Place
}

// Move reads a place, leaving it uninitialized
type Move struct {
	Place Place
}

// Constant is a literal value
type Constant struct {
	Value int64
}

func (Copy) implOperand()     {}
func (Move) implOperand()     {}
func (Constant) implOperand() {}

// PlaceOf returns the place an operand reads. Copy and move are not
// distinguished.
func PlaceOf(op Operand) (Place, bool) {
	switch o := op.(type) {
	case Copy:
		return o.Place, true
	case Move:
		return o.Place, true
	}
	return Place{}, false
}

// --- Rvalues ---

// Rvalue is the right-hand side of an assignment
type Rvalue interface {
	implRvalue()
}

// Use yields the operand unchanged
type Use struct {
	Operand Operand
}

// Repeat builds an array of Count copies of the operand
type Repeat struct {
	Operand Operand
	Count   int
}

// BorrowKind distinguishes shared and mutable references
type BorrowKind int

const (
	BorrowShared BorrowKind = iota
	BorrowMut
)

// Ref takes a reference to a place
type Ref struct {
	Kind  BorrowKind
	Place Place
}

// ThreadLocalRef takes a reference to a thread-local static
type ThreadLocalRef struct {
	Symbol string
}

// AddressOf takes a raw pointer to a place
type AddressOf struct {
	Mutable bool
	Place   Place
}

// Len yields the length of an array or slice place
type Len struct {
	Place Place
}

// CastKind classifies a cast
type CastKind int

const (
	CastMisc CastKind = iota
	CastPointer
)

// Cast converts an operand to another type
type Cast struct {
	Kind    CastKind
	Operand Operand
	Type    string
}

// BinOp enumerates binary operators
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinBitXor
	BinBitAnd
	BinBitOr
	BinShl
	BinShr
	BinEq
	BinLt
	BinLe
	BinNe
	BinGe
	BinGt
	BinOffset
)

var binOpNames = []string{
	"Add", "Sub", "Mul", "Div", "Rem", "BitXor", "BitAnd", "BitOr",
	"Shl", "Shr", "Eq", "Lt", "Le", "Ne", "Ge", "Gt", "Offset",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "?"
}

// ParseBinOp looks up a binary operator by its printed name, ignoring case
func ParseBinOp(name string) (BinOp, bool) {
	for i, n := range binOpNames {
		if strings.EqualFold(n, name) {
			return BinOp(i), true
		}
	}
	return 0, false
}

// BinaryOp applies a binary operator
type BinaryOp struct {
	Op    BinOp
	Left  Operand
	Right Operand
}

// CheckedBinaryOp applies a binary operator and yields (result, overflowed)
type CheckedBinaryOp struct {
	Op    BinOp
	Left  Operand
	Right Operand
}

// NullOp enumerates operators with no operand
type NullOp int

const (
	NullSizeOf NullOp = iota
	NullBox
)

func (op NullOp) String() string {
	if op == NullBox {
		return "Box"
	}
	return "SizeOf"
}

// NullaryOp yields a type-dependent value
type NullaryOp struct {
	Op   NullOp
	Type string
}

// UnOp enumerates unary operators
type UnOp int

const (
	UnNot UnOp = iota
	UnNeg
)

func (op UnOp) String() string {
	if op == UnNeg {
		return "Neg"
	}
	return "Not"
}

// UnaryOp applies a unary operator
type UnaryOp struct {
	Op      UnOp
	Operand Operand
}

// Discriminant reads the variant tag of an enum place
type Discriminant struct {
	Place Place
}

// AggregateKind describes what an aggregate builds
type AggregateKind struct {
	Name    string // "" for tuples and arrays
	Variant int
}

// Aggregate builds a tuple, array, struct or enum variant
type Aggregate struct {
	Kind     AggregateKind
	Operands []Operand
}

func (Use) implRvalue()             {}
func (Repeat) implRvalue()          {}
func (Ref) implRvalue()             {}
func (ThreadLocalRef) implRvalue()  {}
func (AddressOf) implRvalue()       {}
func (Len) implRvalue()             {}
func (Cast) implRvalue()            {}
func (BinaryOp) implRvalue()        {}
func (CheckedBinaryOp) implRvalue() {}
func (NullaryOp) implRvalue()       {}
func (UnaryOp) implRvalue()         {}
func (Discriminant) implRvalue()    {}
func (Aggregate) implRvalue()       {}

// --- Statements ---

// Statement is a non-terminating step of a basic block
type Statement interface {
	implStatement()
}

// Assign writes an rvalue to a place
type Assign struct {
	Place  Place
	Rvalue Rvalue
}

// SetDiscriminant writes a variant tag to an enum place
type SetDiscriminant struct {
	Place   Place
	Variant int
}

// StorageLive marks the start of a local's storage
type StorageLive struct {
	Local Local
}

// StorageDead marks the end of a local's storage
type StorageDead struct {
	Local Local
}

// FakeRead is a borrow-checker read with no runtime effect
type FakeRead struct {
	Place Place
}

// AscribeUserType records a user type annotation
type AscribeUserType struct {
	Place Place
	Type  string
}

// Retag is an aliasing-model marker
type Retag struct {
	Place Place
}

// Coverage is an instrumentation marker
type Coverage struct {
	Counter int
}

// Nop does nothing
type Nop struct{}

// LlvmInlineAsm is opaque inline assembly
type LlvmInlineAsm struct {
	Template string
	Outputs  []Place
	Inputs   []Operand
}

// CopyNonOverlapping is a raw memory copy of Count elements from Src to Dst
type CopyNonOverlapping struct {
	Src   Operand
	Dst   Operand
	Count Operand
}

func (Assign) implStatement()             {}
func (SetDiscriminant) implStatement()    {}
func (StorageLive) implStatement()        {}
func (StorageDead) implStatement()        {}
func (FakeRead) implStatement()           {}
func (AscribeUserType) implStatement()    {}
func (Retag) implStatement()              {}
func (Coverage) implStatement()           {}
func (Nop) implStatement()                {}
func (LlvmInlineAsm) implStatement()      {}
func (CopyNonOverlapping) implStatement() {}

// --- Terminators ---

// Terminator ends a basic block and transfers control
type Terminator interface {
	implTerminator()
}

// Goto jumps unconditionally
type Goto struct {
	Target BasicBlock
}

// SwitchTargets maps values to blocks; Targets has one more entry than
// Values, the last being the otherwise branch.
type SwitchTargets struct {
	Values  []int64
	Targets []BasicBlock
}

// Otherwise returns the fallback target
func (st SwitchTargets) Otherwise() BasicBlock {
	return st.Targets[len(st.Targets)-1]
}

// Target returns the block taken for value v
func (st SwitchTargets) Target(v int64) BasicBlock {
	for i, val := range st.Values {
		if val == v {
			return st.Targets[i]
		}
	}
	return st.Otherwise()
}

// SwitchInt is a multi-way branch on an integer operand
type SwitchInt struct {
	Discr   Operand
	Targets SwitchTargets
}

// Resume continues unwinding
type Resume struct{}

// Abort aborts the process
type Abort struct{}

// Return returns _0 to the caller
type Return struct{}

// Unreachable marks a block that cannot execute
type Unreachable struct{}

// Drop releases the value in Place
type Drop struct {
	Place  Place
	Target BasicBlock
	Unwind *BasicBlock
}

// DropAndReplace releases Place and then stores Value into it
type DropAndReplace struct {
	Place  Place
	Value  Operand
	Target BasicBlock
	Unwind *BasicBlock
}

// CallDest is where a call stores its result and returns to
type CallDest struct {
	Place  Place
	Target BasicBlock
}

// Call invokes a function. A nil Destination means the call diverges.
type Call struct {
	Func        Operand
	Symbol      string
	Args        []Operand
	Destination *CallDest
	Cleanup     *BasicBlock
}

// Assert checks Cond == Expected, continuing at Target
type Assert struct {
	Cond     Operand
	Expected bool
	Msg      string
	Target   BasicBlock
	Cleanup  *BasicBlock
}

// Yield suspends a generator
type Yield struct {
	Value     Operand
	Resume    BasicBlock
	ResumeArg Place
	Drop      *BasicBlock
}

// GeneratorDrop ends a generator being dropped
type GeneratorDrop struct{}

// FalseEdge behaves as a goto to RealTarget; ImaginaryTarget is decorative
type FalseEdge struct {
	RealTarget      BasicBlock
	ImaginaryTarget BasicBlock
}

// FalseUnwind behaves as a goto to RealTarget; Unwind is decorative
type FalseUnwind struct {
	RealTarget BasicBlock
	Unwind     *BasicBlock
}

// InlineAsm is opaque assembly; Destination is nil if it diverges
type InlineAsm struct {
	Template    string
	Destination *BasicBlock
}

func (Goto) implTerminator()           {}
func (SwitchInt) implTerminator()      {}
func (Resume) implTerminator()         {}
func (Abort) implTerminator()          {}
func (Return) implTerminator()         {}
func (Unreachable) implTerminator()    {}
func (Drop) implTerminator()           {}
func (DropAndReplace) implTerminator() {}
func (Call) implTerminator()           {}
func (Assert) implTerminator()         {}
func (Yield) implTerminator()          {}
func (GeneratorDrop) implTerminator()  {}
func (FalseEdge) implTerminator()      {}
func (FalseUnwind) implTerminator()    {}
func (InlineAsm) implTerminator()      {}

// --- Blocks and bodies ---

// BasicBlockData is the content of one block
type BasicBlockData struct {
	Statements []Statement
	Terminator Terminator
}

// Body is a function body: an append-only arena of blocks.
// bb0 is the entry block.
type Body struct {
	Name       string
	ArgCount   int // locals _1.._ArgCount are arguments
	LocalCount int
	Blocks     []*BasicBlockData
}

// NewBody creates an empty body
func NewBody(name string, argCount int) *Body {
	return &Body{Name: name, ArgCount: argCount, LocalCount: argCount + 1}
}

// AddBlock appends a block and returns its fresh id
func (b *Body) AddBlock(data *BasicBlockData) BasicBlock {
	b.Blocks = append(b.Blocks, data)
	return BasicBlock(len(b.Blocks) - 1)
}

// Block returns the block with the given id, or nil for a dangling id
func (b *Body) Block(id BasicBlock) *BasicBlockData {
	if id < 0 || int(id) >= len(b.Blocks) {
		return nil
	}
	return b.Blocks[id]
}

// Clone returns a deep copy of the block data
func (d *BasicBlockData) Clone() *BasicBlockData {
	var stmts []Statement
	for _, s := range d.Statements {
		stmts = append(stmts, cloneStatement(s))
	}
	return &BasicBlockData{Statements: stmts, Terminator: cloneTerminator(d.Terminator)}
}

// Clone returns a deep copy of the body. Nil blocks stay nil.
func (b *Body) Clone() *Body {
	nb := &Body{Name: b.Name, ArgCount: b.ArgCount, LocalCount: b.LocalCount}
	nb.Blocks = make([]*BasicBlockData, len(b.Blocks))
	for i, blk := range b.Blocks {
		if blk != nil {
			nb.Blocks[i] = blk.Clone()
		}
	}
	return nb
}

// Program is a set of function bodies loaded together
type Program struct {
	Bodies []*Body
}
