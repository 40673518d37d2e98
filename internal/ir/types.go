package ir

import (
	"strconv"
)

// Type is a QBE base type.
type Type int

const (
	Word   Type = iota // w, 32-bit integer
	Long               // l, 64-bit integer
	Single             // s, 32-bit float
	Double             // d, 64-bit float
)

func (t Type) String() string {
	switch t {
	case Word:
		return "w"
	case Long:
		return "l"
	case Single:
		return "s"
	case Double:
		return "d"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// OperandKind selects how an Operand renders.
type OperandKind int

const (
	Temp   OperandKind = iota // %_N
	Local                     // %name_V
	Global                    // $name
	Float                     // d_<value>
	Int                       // plain integer constant
)

// Operand is a value an instruction reads or writes.
type Operand struct {
	Kind    OperandKind
	Name    string  // Local and Global
	Version int     // Local version, Temp number
	Value   float64 // Float and Int constants
}

// TempOf returns the temporary %_n.
func TempOf(n int) Operand { return Operand{Kind: Temp, Version: n} }

// LocalOf returns the versioned local %name_version.
func LocalOf(name string, version int) Operand {
	return Operand{Kind: Local, Name: name, Version: version}
}

// GlobalOf returns the global symbol $name.
func GlobalOf(name string) Operand { return Operand{Kind: Global, Name: name} }

// FloatOf returns a double-precision constant.
func FloatOf(v float64) Operand { return Operand{Kind: Float, Value: v} }

// IntOf returns an integer constant.
func IntOf(n int64) Operand { return Operand{Kind: Int, Value: float64(n)} }

// IsTemporary reports whether the operand names an SSA register written by
// some instruction or bound as a parameter.
func (o Operand) IsTemporary() bool {
	return o.Kind == Temp || o.Kind == Local
}

func (o Operand) String() string {
	switch o.Kind {
	case Temp:
		return "%_" + strconv.Itoa(o.Version)
	case Local:
		return "%" + o.Name + "_" + strconv.Itoa(o.Version)
	case Global:
		return "$" + o.Name
	case Float:
		return "d_" + strconv.FormatFloat(o.Value, 'g', -1, 64)
	case Int:
		return strconv.FormatInt(int64(o.Value), 10)
	default:
		return "?"
	}
}

// Arg is a typed call argument or function parameter.
type Arg struct {
	Type  Type
	Value Operand
}

func (a Arg) String() string {
	return a.Type.String() + " " + a.Value.String()
}

// D wraps an operand as a double argument.
func D(o Operand) Arg { return Arg{Type: Double, Value: o} }

// BinaryOp is an arithmetic operator.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Exp // lowered to a call to pow
)

var binaryOpNames = [...]string{
	Add: "add",
	Sub: "sub",
	Mul: "mul",
	Div: "div",
	Exp: "exp",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryOpNames) {
		return "BinaryOp(" + strconv.Itoa(int(op)) + ")"
	}
	return binaryOpNames[op]
}

// PowSymbol is the libm function exponentiation lowers to.
const PowSymbol = "pow"

// Operation is the right-hand side of an instruction: a Binary or a Call.
type Operation interface {
	// Operands returns the values the operation reads, in order.
	Operands() []Operand
	String() string

	isOperation() // sealed
}

// Binary applies an arithmetic operator to two doubles.
type Binary struct {
	Op   BinaryOp
	X, Y Operand
}

// Call invokes a global function. VarArgs, when non-empty, follow a "..."
// marker as QBE requires for variadic callees.
type Call struct {
	Func    string
	Args    []Arg
	VarArgs []Arg
}

func (Binary) isOperation() {}
func (Call) isOperation()   {}

func (b Binary) Operands() []Operand { return []Operand{b.X, b.Y} }

func (c Call) Operands() []Operand {
	ops := make([]Operand, 0, len(c.Args)+len(c.VarArgs))
	for _, a := range c.Args {
		ops = append(ops, a.Value)
	}
	for _, a := range c.VarArgs {
		ops = append(ops, a.Value)
	}
	return ops
}

// Arity is the total number of arguments passed.
func (c Call) Arity() int { return len(c.Args) + len(c.VarArgs) }

// Instruction assigns the result of one operation to a fresh temporary.
type Instruction struct {
	Dest Operand
	Type Type
	Op   Operation
}

// Function is a QBE function definition with a single @start block.
type Function struct {
	Exported   bool
	ReturnType Type
	Name       string // without the leading $
	Params     []Arg
	Body       []Instruction
	Return     Operand
}

// Arity is the number of declared parameters.
func (f *Function) Arity() int { return len(f.Params) }

// Symbol returns the global symbol that names f.
func (f *Function) Symbol() Operand { return GlobalOf(f.Name) }

// Program is a compiled unit: the exported entry function plus every
// declared function, in declaration order.
type Program struct {
	Entry     Function
	Functions []Function
}

// EntryName is the symbol of the exported entry function.
const EntryName = "main"

// NewEntry returns an empty exported main returning word 0.
func NewEntry() Function {
	return Function{
		Exported:   true,
		ReturnType: Word,
		Name:       EntryName,
		Return:     IntOf(0),
	}
}

// Lookup returns the function named name, searching the entry function first.
func (p *Program) Lookup(name string) (*Function, bool) {
	if p.Entry.Name == name {
		return &p.Entry, true
	}
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return &p.Functions[i], true
		}
	}
	return nil, false
}

// InstructionCount returns the number of instructions across all functions.
func (p *Program) InstructionCount() int {
	n := len(p.Entry.Body)
	for _, fn := range p.Functions {
		n += len(fn.Body)
	}
	return n
}

// Summary describes the program shape as plain values that MarshalCanonical
// accepts.
func (p *Program) Summary() map[string]any {
	functions := make([]any, len(p.Functions))
	for i, fn := range p.Functions {
		functions[i] = map[string]any{
			"name":         fn.Name,
			"params":       len(fn.Params),
			"instructions": len(fn.Body),
		}
	}
	return map[string]any{
		"entry_instructions": len(p.Entry.Body),
		"functions":          functions,
		"ir_version":         IRVersion,
	}
}
