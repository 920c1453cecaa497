package ilgen

import "fmt"

// OpKind identifies a recorded IR operation.
type OpKind uint8

const (
	OpConstInt32 OpKind = iota
	OpLoad              // load a named location, producing Result
	OpStore             // store A into a named location
	OpLoadAt            // load through address A, producing Result
	OpStoreAt           // store B through address A
	OpStoreOver         // redefine the variable holding Dest with A
	OpIndexAt           // Result = A + B*sizeof(Elem)
	OpAdd
	OpSub
)

// String returns a human-readable name for OpKind.
func (k OpKind) String() string {
	switch k {
	case OpConstInt32:
		return "constInt32"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpLoadAt:
		return "loadAt"
	case OpStoreAt:
		return "storeAt"
	case OpStoreOver:
		return "storeOver"
	case OpIndexAt:
		return "indexAt"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	default:
		return fmt.Sprintf("OpKind(%d)", k)
	}
}

// Op is a single IR operation recorded by an OpBuilder.
type Op struct {
	Kind   OpKind
	Result *Value // value produced, nil for pure stores
	Dest   *Value // OpStoreOver destination
	A, B   *Value // operands
	Name   string // location name for OpLoad/OpStore
	Elem   Type   // element type for OpLoadAt/OpIndexAt
	Const  int32  // literal for OpConstInt32
}

// Builder accepts the operations the simulated state objects request.
// It is the injection point between the simulation layer and whatever IR
// layer lowers these operations; the simulation never emits machine
// bytes itself.
type Builder interface {
	// ConstInt32 produces a symbolic 32-bit integer constant.
	ConstInt32(v int32) *Value

	// Load produces the current value of a named location.
	Load(name string) *Value

	// Store writes value into a named location.
	Store(name string, value *Value)

	// LoadAt loads an element of the given type through addr.
	LoadAt(elem Type, addr *Value) *Value

	// StoreAt stores value through addr.
	StoreAt(addr, value *Value)

	// StoreOver redefines the variable that holds dest so it now holds
	// value. Code already generated against dest keeps reading the same
	// variable and therefore observes value.
	StoreOver(dest, value *Value)

	// IndexAt produces base + index elements of the given type.
	IndexAt(elem Type, base, index *Value) *Value

	// Add and Sub produce arithmetic on symbolic values.
	Add(a, b *Value) *Value
	Sub(a, b *Value) *Value
}

// MethodBuilder owns the symbolic-value arena for one method compilation
// and hands out Builders for individual program points. All values and
// temporary names created during the compilation come from here, so the
// simulated state objects can share handles freely.
type MethodBuilder struct {
	name    string
	nextVal int32
	nextTmp int32
}

// NewMethodBuilder creates the builder context for compiling one method.
func NewMethodBuilder(name string) *MethodBuilder {
	return &MethodBuilder{name: name}
}

// Name returns the name of the method being compiled.
func (mb *MethodBuilder) Name() string { return mb.name }

// NewValue allocates a fresh symbolic value of the given type.
func (mb *MethodBuilder) NewValue(typ Type) *Value {
	v := &Value{id: mb.nextVal, typ: typ}
	mb.nextVal++
	return v
}

// NewBuilder returns a fresh op-recording Builder tied to this method.
func (mb *MethodBuilder) NewBuilder() *OpBuilder {
	return &OpBuilder{mb: mb}
}

// tempName allocates a method-unique temporary location name.
func (mb *MethodBuilder) tempName(prefix string) string {
	n := fmt.Sprintf("%s.t%d", prefix, mb.nextTmp)
	mb.nextTmp++
	return n
}

// OpBuilder is a Builder that records the requested operations in order.
// The surrounding code generator lowers the recorded ops; the tests in
// this package inspect them directly.
type OpBuilder struct {
	mb  *MethodBuilder
	ops []Op
}

// Ops returns the operations recorded so far, in emission order.
func (b *OpBuilder) Ops() []Op { return b.ops }

// CountKind returns how many recorded operations have the given kind.
func (b *OpBuilder) CountKind(kind OpKind) int {
	n := 0
	for _, op := range b.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (b *OpBuilder) ConstInt32(v int32) *Value {
	r := b.mb.NewValue(TypeInt32)
	b.ops = append(b.ops, Op{Kind: OpConstInt32, Result: r, Const: v})
	return r
}

func (b *OpBuilder) Load(name string) *Value {
	r := b.mb.NewValue(TypeAddress)
	b.ops = append(b.ops, Op{Kind: OpLoad, Result: r, Name: name})
	return r
}

func (b *OpBuilder) Store(name string, value *Value) {
	b.ops = append(b.ops, Op{Kind: OpStore, A: value, Name: name})
}

func (b *OpBuilder) LoadAt(elem Type, addr *Value) *Value {
	r := b.mb.NewValue(elem)
	b.ops = append(b.ops, Op{Kind: OpLoadAt, Result: r, A: addr, Elem: elem})
	return r
}

func (b *OpBuilder) StoreAt(addr, value *Value) {
	b.ops = append(b.ops, Op{Kind: OpStoreAt, A: addr, B: value})
}

func (b *OpBuilder) StoreOver(dest, value *Value) {
	b.ops = append(b.ops, Op{Kind: OpStoreOver, Dest: dest, A: value})
}

func (b *OpBuilder) IndexAt(elem Type, base, index *Value) *Value {
	r := b.mb.NewValue(TypeAddress)
	b.ops = append(b.ops, Op{Kind: OpIndexAt, Result: r, A: base, B: index, Elem: elem})
	return r
}

func (b *OpBuilder) Add(a, x *Value) *Value {
	r := b.mb.NewValue(a.typ)
	b.ops = append(b.ops, Op{Kind: OpAdd, Result: r, A: a, B: x})
	return r
}

func (b *OpBuilder) Sub(a, x *Value) *Value {
	r := b.mb.NewValue(a.typ)
	b.ops = append(b.ops, Op{Kind: OpSub, Result: r, A: a, B: x})
	return r
}
