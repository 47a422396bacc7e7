package insts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is the sentinel wrapped by every literal parse failure.
var ErrParse = errors.New("parse error")

// ErrDecode is the sentinel wrapped by malformed instruction lines.
var ErrDecode = errors.New("decode error")

// ParseError reports a literal operand that is not a valid 4-byte integer.
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid literal %q: %v", e.Token, e.Err)
}

// Unwrap exposes both ErrParse and the underlying conversion error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Littoi converts a base-10, optionally signed literal into a 4-byte integer.
func Littoi(literal string) (int32, error) {
	v, err := strconv.ParseInt(literal, 10, 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &ParseError{Token: literal, Err: err}
	}
	return int32(v), nil
}

// Operand is one decoded operand slot.
type Operand struct {
	// Token is the operand text: a register name, or the literal without
	// its '#' prefix.
	Token string
	// IsLiteral is true when Token is an integer literal.
	IsLiteral bool
	// Value holds the parsed literal (zero for registers).
	Value int32
}

// Instruction represents a decoded APEX instruction.
type Instruction struct {
	PC       uint64    // Address of the instruction
	Op       Op        // Operation code
	Operands []Operand // Operand slots, laid out by Op.Shape()
	Text     string    // Source line the instruction was decoded from
}

// Literal returns the instruction's immediate operand value, or 0 when the
// shape has no immediate slot.
func (i *Instruction) Literal() int32 {
	idx := i.Op.Shape().ImmediateIndex()
	if idx < 0 {
		return 0
	}
	return i.Operands[idx].Value
}

// String renders the instruction in assembly syntax.
func (i *Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Op.String()
	}
	toks := make([]string, len(i.Operands))
	for n, o := range i.Operands {
		if o.IsLiteral {
			toks[n] = "#" + o.Token
		} else {
			toks[n] = o.Token
		}
	}
	return i.Op.String() + " " + strings.Join(toks, ",")
}

// Decoder decodes APEX assembly lines into instructions.
type Decoder struct{}

// NewDecoder creates a new APEX instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// StripComment removes a trailing ';' comment and surrounding whitespace.
func StripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// Decode decodes one assembly line located at pc.
func (d *Decoder) Decode(line string, pc uint64) (*Instruction, error) {
	text := StripComment(line)
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty line at pc %d", ErrDecode, pc)
	}

	op, ok := LookupOp(strings.ToUpper(fields[0]))
	if !ok {
		return nil, fmt.Errorf("%w: unknown opcode %q at pc %d", ErrDecode, fields[0], pc)
	}

	shape := op.Shape()
	tokens := fields[1:]
	if len(tokens) != shape.NumOperands() {
		return nil, fmt.Errorf("%w: %s takes %d operands, got %d at pc %d",
			ErrDecode, op, shape.NumOperands(), len(tokens), pc)
	}

	inst := &Instruction{
		PC:       pc,
		Op:       op,
		Operands: make([]Operand, len(tokens)),
		Text:     text,
	}

	for i, tok := range tokens {
		operand, err := d.decodeOperand(tok, shape.Roles[i])
		if err != nil {
			return nil, fmt.Errorf("%s operand %d at pc %d: %w", op, i, pc, err)
		}
		inst.Operands[i] = operand
	}

	return inst, nil
}

// decodeOperand decodes one token according to the role of its slot.
func (d *Decoder) decodeOperand(tok string, role Role) (Operand, error) {
	upper := strings.ToUpper(tok)
	if IsRegisterName(upper) {
		if role == RoleImmediate {
			return Operand{}, fmt.Errorf("%w: register %s in immediate slot", ErrDecode, upper)
		}
		return Operand{Token: upper}, nil
	}

	if role == RoleDest {
		return Operand{}, fmt.Errorf("%w: destination %q is not a register", ErrDecode, tok)
	}

	lit := strings.TrimPrefix(tok, "#")
	v, err := Littoi(lit)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Token: lit, IsLiteral: true, Value: v}, nil
}
