package compiler

import (
	"fmt"
	"strings"
)

// This file is the x86-64 code emitter: it walks a
// Module's quadruples and produces AT&T-syntax assembly text for the
// external assembler (internal/toolchain) to hand to `as`/`gcc`. It follows
// a "one emit method per IR opcode, one string builder" shape, targeting
// the System V AMD64 calling convention.
//
// Every instruction operand that isn't already a live register value is
// materialized into one of two fixed scratch registers before use: rax /
// xmm0 for the first operand, rbx / xmm1 for the second. Neither is ever
// handed out by the register allocator (see regalloc.go's pool), and by
// the time the function body's quads run, the incoming argument registers
// have already been copied into their frame slots by the prologue, so
// reusing rbx/xmm1 as scratch there is always safe.
const (
	scratch1Int   = "rax"
	scratch2Int   = "rbx"
	scratch1Float = "xmm0"
	scratch2Float = "xmm1"
)

var regWidths = map[string][4]string{
	"rax": {"rax", "eax", "ax", "al"},
	"rbx": {"rbx", "ebx", "bx", "bl"},
	"rcx": {"rcx", "ecx", "cx", "cl"},
	"rdx": {"rdx", "edx", "dx", "dl"},
	"rsi": {"rsi", "esi", "si", "sil"},
	"rdi": {"rdi", "edi", "di", "dil"},
	"r8":  {"r8", "r8d", "r8w", "r8b"},
	"r9":  {"r9", "r9d", "r9w", "r9b"},
	"r10": {"r10", "r10d", "r10w", "r10b"},
	"r11": {"r11", "r11d", "r11w", "r11b"},
}

func sizeIdx(size int64) int {
	switch {
	case size >= 8:
		return 0
	case size >= 4:
		return 1
	case size >= 2:
		return 2
	default:
		return 3
	}
}

func isRCXFamily(reg string) bool {
	base := strings.TrimPrefix(reg, "%")
	for _, w := range regWidths["rcx"] {
		if w == base {
			return true
		}
	}
	return false
}

func regAt(base string, size int64) string {
	widths, ok := regWidths[base]
	if !ok {
		return base
	}
	return "%" + widths[sizeIdx(size)]
}

func movSuffix(size int64) string {
	switch {
	case size >= 8:
		return "q"
	case size >= 4:
		return "l"
	case size >= 2:
		return "w"
	default:
		return "b"
	}
}

var argGPRs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
var argXMMs = []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}

// Emitter holds the running output buffer and per-function allocator
// results while EmitModule walks a Module.
type Emitter struct {
	mod           *Module
	out           strings.Builder
	allocs        map[string]*AllocResult
	fn            *Function
	pendingParams []Operand
}

// EmitModule lowers mod to a complete AT&T-syntax assembly file.
func EmitModule(mod *Module) string {
	e := &Emitter{mod: mod, allocs: make(map[string]*AllocResult)}
	for i := range mod.Functions {
		e.allocs[mod.Functions[i].Name] = Allocate(&mod.Functions[i])
	}

	e.emitDataSection()
	e.emitRODataSection()
	e.line(".text")
	for i := range mod.Functions {
		e.emitFunction(&mod.Functions[i])
	}
	return e.out.String()
}

func (e *Emitter) line(format string, args ...any) {
	e.out.WriteString(fmt.Sprintf(format, args...))
	e.out.WriteByte('\n')
}

func (e *Emitter) emitDataSection() {
	var data, bss []Global
	for _, g := range e.mod.Globals {
		if len(g.Init) == 0 {
			bss = append(bss, g)
		} else {
			data = append(data, g)
		}
	}
	if len(data) > 0 {
		e.line(".data")
		for _, g := range data {
			e.line(".globl %s", g.Name)
			e.line(".align %d", g.Type.Alignment())
			e.line("%s:", g.Name)
			for _, entry := range g.Init {
				e.emitInitEntry(entry)
			}
		}
	}
	if len(bss) > 0 {
		e.line(".bss")
		for _, g := range bss {
			e.line(".globl %s", g.Name)
			e.line(".align %d", g.Type.Alignment())
			e.line("%s:", g.Name)
			e.line(".zero %d", g.Type.Size())
		}
	}
}

func (e *Emitter) emitInitEntry(entry InitEntry) {
	if entry.Zero {
		e.line(".zero %d", entry.Width)
		return
	}
	v := entry.Value
	switch v.Kind {
	case OperandImmInt:
		e.line(".%s %d", dataDirective(entry.Width), v.Imm)
	case OperandImmFloat:
		if entry.Width >= 8 {
			e.line(".double %v", v.FImm)
		} else {
			e.line(".float %v", v.FImm)
		}
	case OperandGlobal:
		e.line(".quad %s", v.Name)
	case OperandStringLabel:
		e.line(".quad %s", v.Label)
	default:
		e.line(".zero %d", entry.Width)
	}
}

func dataDirective(width int64) string {
	switch width {
	case 1:
		return "byte"
	case 2:
		return "word"
	case 4:
		return "long"
	default:
		return "quad"
	}
}

func (e *Emitter) emitRODataSection() {
	if len(e.mod.StringLits) == 0 && len(e.mod.FloatConsts) == 0 {
		return
	}
	e.line(".section .rodata")
	for _, s := range e.mod.StringLits {
		e.line("%s:", s.Label)
		e.line(".asciz %s", quoteAsciz(s.Value))
	}
	for _, f := range e.mod.FloatConsts {
		e.line(".align %d", 8)
		e.line("%s:", f.Label)
		if f.Wide {
			e.line(".double %v", f.Value)
		} else {
			e.line(".float %v", f.Value)
		}
	}
}

func quoteAsciz(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		switch c {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// ---- functions ----

func (e *Emitter) emitFunction(fn *Function) {
	e.fn = fn
	alloc := e.allocs[fn.Name]
	total := alignUp(fn.FrameSize+spillAreaSize, 16)

	e.line(".globl %s", fn.Name)
	e.line("%s:", fn.Name)
	e.line("\tpush %%rbp")
	e.line("\tmov %%rsp, %%rbp")
	e.line("\tsub $%d, %%rsp", total)

	gi, xi := 0, 0
	for _, p := range fn.Params {
		disp := localOperandDisp(p)
		if p.Type.IsFloat() {
			if xi < len(argXMMs) {
				instr := "movss"
				if p.Type.Kind == KDouble {
					instr = "movsd"
				}
				e.line("\t%s %%%s, %s", instr, argXMMs[xi], disp)
			}
			xi++
		} else {
			if gi < len(argGPRs) {
				e.line("\tmov %s, %s", regAt(argGPRs[gi], p.Type.Size()), disp)
			}
			gi++
		}
	}
	if fn.Variadic {
		e.line("\tmov $%d, %%al", xi)
	}

	for _, q := range fn.Body {
		e.emitQuad(q, alloc)
	}

	e.line("\tleave")
	e.line("\tret")
}

// localOperandDisp formats a local/parameter's frame-relative memory
// operand. Frame layout grows downward from rbp: a variable at
// symbol-table offset off with size sz lives at -(off+sz)(%rbp).
func localOperandDisp(op Operand) string {
	return fmt.Sprintf("-%d(%%rbp)", op.Imm+op.Type.Size())
}

func spillDisp(fn *Function, loc Loc) string {
	return fmt.Sprintf("-%d(%%rbp)", fn.FrameSize+loc.Offset+spillSlotSize)
}

// ---- operand loading ----

// loadInto emits whatever move is needed to get op's value into the named
// scratch register (an int GPR base name or an xmm register), and returns
// the sized register operand string to use in the instruction that follows.
func (e *Emitter) loadInto(op Operand, alloc *AllocResult, scratch string) string {
	isFloat := op.Type != nil && op.Type.IsFloat()
	// A non-float OperandStringLabel is a string literal: the label names
	// the bytes themselves, so the operand's value is the label's address,
	// not whatever 8 bytes happen to sit there -- needs lea, not mov.
	if op.Kind == OperandStringLabel && !isFloat {
		e.line("\tlea %s(%%rip), %s", op.Label, regAt(scratch, 8))
		return regAt(scratch, 8)
	}
	if isFloat {
		instr := "movss"
		if op.Type.Kind == KDouble {
			instr = "movsd"
		}
		e.line("\t%s %s, %%%s", instr, e.memOrReg(op, alloc), scratch)
		return "%" + scratch
	}
	size := int64(8)
	if op.Type != nil {
		size = op.Type.Size()
	}
	e.line("\tmov%s %s, %s", movSuffix(size), e.memOrReg(op, alloc), regAt(scratch, size))
	return regAt(scratch, size)
}

// memOrReg returns the direct operand text for op: a register name if op
// is a temp already resident in a register, otherwise a memory operand
// (local, global, spill slot) or an immediate -- suitable as a mov source.
func (e *Emitter) memOrReg(op Operand, alloc *AllocResult) string {
	switch op.Kind {
	case OperandImmInt:
		return fmt.Sprintf("$%d", op.Imm)
	case OperandLocal:
		return localOperandDisp(op)
	case OperandGlobal:
		return op.Name + "(%rip)"
	case OperandStringLabel:
		return op.Label + "(%rip)"
	case OperandTemp:
		loc := alloc.TempLoc[op.Temp]
		if loc.Kind == LocReg {
			size := int64(8)
			if op.Type != nil {
				size = op.Type.Size()
			}
			if isXMMReg(loc.Reg) {
				return "%" + loc.Reg
			}
			return regAt(loc.Reg, size)
		}
		return spillDisp(e.fn, loc)
	}
	return "$0"
}

// operandReg materializes op into a register (its own, if it already
// lives in one; scratch1 otherwise) and returns that register's operand
// string.
func (e *Emitter) operandReg(op Operand, alloc *AllocResult, isSecond bool) string {
	if op.Kind == OperandTemp {
		if loc := alloc.TempLoc[op.Temp]; loc.Kind == LocReg {
			size := int64(8)
			if op.Type != nil {
				size = op.Type.Size()
			}
			if isXMMReg(loc.Reg) {
				return "%" + loc.Reg
			}
			return regAt(loc.Reg, size)
		}
	}
	scratch := scratch1Int
	if op.Type != nil && op.Type.IsFloat() {
		scratch = scratch1Float
	}
	if isSecond {
		scratch = scratch2Int
		if op.Type != nil && op.Type.IsFloat() {
			scratch = scratch2Float
		}
	}
	return e.loadInto(op, alloc, scratch)
}

// storeResult writes value (already sitting in reg) to result's home.
func (e *Emitter) storeResult(result Operand, reg string, alloc *AllocResult) {
	switch result.Kind {
	case OperandLocal:
		size := result.Type.Size()
		e.line("\tmov%s %s, %s", movSuffix(size), sizedReg(reg, size), localOperandDisp(result))
	case OperandGlobal:
		size := result.Type.Size()
		e.line("\tmov%s %s, %s(%%rip)", movSuffix(size), sizedReg(reg, size), result.Name)
	case OperandTemp:
		loc := alloc.TempLoc[result.Temp]
		if loc.Kind == LocReg {
			isFloat := result.Type != nil && result.Type.IsFloat()
			if isFloat {
				instr := "movss"
				if result.Type.Kind == KDouble {
					instr = "movsd"
				}
				e.line("\t%s %s, %%%s", instr, reg, loc.Reg)
			} else {
				size := result.Type.Size()
				e.line("\tmov%s %s, %s", movSuffix(size), sizedReg(reg, size), regAt(loc.Reg, size))
			}
			return
		}
		if result.Type != nil && result.Type.IsFloat() {
			instr := "movss"
			if result.Type.Kind == KDouble {
				instr = "movsd"
			}
			e.line("\t%s %s, %s", instr, reg, spillDisp(e.fn, loc))
		} else {
			size := result.Type.Size()
			e.line("\tmov%s %s, %s", movSuffix(size), sizedReg(reg, size), spillDisp(e.fn, loc))
		}
	}
}

// sizedReg re-widths a "%rax"-style register operand string to size bytes;
// used when a value already sits in a fixed scratch register but the
// destination is narrower.
func sizedReg(reg string, size int64) string {
	base := strings.TrimPrefix(reg, "%")
	if isXMMReg(base) {
		return reg
	}
	if widths, ok := regWidths[base]; ok {
		return "%" + widths[sizeIdx(size)]
	}
	return reg
}

// ---- quad dispatch ----

func (e *Emitter) emitQuad(q Quad, alloc *AllocResult) {
	switch q.Op {
	case OpAdd, OpSub, OpAnd, OpOr, OpXor:
		e.emitIntBinary(q, alloc, map[Opcode]string{OpAdd: "add", OpSub: "sub", OpAnd: "and", OpOr: "or", OpXor: "xor"}[q.Op])
	case OpMul:
		e.emitMul(q, alloc)
	case OpDiv, OpMod:
		e.emitDivMod(q, alloc)
	case OpShl, OpShr:
		e.emitShift(q, alloc, q.Op == OpShl)
	case OpFAdd, OpFSub, OpFMul, OpFDiv:
		e.emitFloatBinary(q, alloc, map[Opcode]string{OpFAdd: "add", OpFSub: "sub", OpFMul: "mul", OpFDiv: "div"}[q.Op])
	case OpNeg:
		e.emitNeg(q, alloc)
	case OpFNeg:
		e.emitFNeg(q, alloc)
	case OpNot:
		e.emitNot(q, alloc)
	case OpLNot:
		e.emitLNot(q, alloc)
	case OpCmpEq, OpCmpNe, OpCmpLt, OpCmpLe, OpCmpGt, OpCmpGe:
		e.emitIntCompare(q, alloc)
	case OpFCmpEq, OpFCmpNe, OpFCmpLt, OpFCmpLe, OpFCmpGt, OpFCmpGe:
		e.emitFloatCompare(q, alloc)
	case OpMove:
		e.emitMove(q, alloc)
	case OpLoad:
		e.emitLoad(q, alloc)
	case OpStore:
		e.emitStore(q, alloc)
	case OpAddr:
		e.emitAddr(q, alloc)
	case OpIntToFloat:
		e.emitIntToFloat(q, alloc)
	case OpFloatToInt:
		e.emitFloatToInt(q, alloc)
	case OpSExt, OpZExt:
		e.emitExtend(q, alloc, q.Op == OpSExt)
	case OpTrunc:
		e.emitTrunc(q, alloc)
	case OpFExt:
		e.emitFloatWiden(q, alloc)
	case OpFTrunc:
		e.emitFloatNarrow(q, alloc)
	case OpParam:
		e.emitParam(q, alloc)
	case OpCall:
		e.emitCall(q, alloc)
	case OpLabel:
		e.line("%s:", q.Result.Label)
	case OpJump:
		e.line("\tjmp %s", q.Result.Label)
	case OpJumpIfZero:
		e.emitCondJump(q, alloc, "je")
	case OpJumpIfNotZero:
		e.emitCondJump(q, alloc, "jne")
	case OpReturn:
		e.emitReturn(q, alloc)
	}
}

func (e *Emitter) emitIntBinary(q Quad, alloc *AllocResult, mnemonic string) {
	a := e.operandReg(q.Arg1, alloc, false)
	b := e.operandReg(q.Arg2, alloc, true)
	e.line("\t%s %s, %s", mnemonic, b, a)
	e.storeResult(q.Result, a, alloc)
}

func (e *Emitter) emitMul(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	b := e.operandReg(q.Arg2, alloc, true)
	e.line("\timul %s, %s", b, a)
	e.storeResult(q.Result, a, alloc)
}

// emitDivMod always loads its dividend into rax explicitly since idiv's
// dividend/remainder pair is fixed by the ISA, overriding the usual
// scratch1/scratch2 convention. RDX is also a pool register, so a divisor
// living there is first moved to scratch2 and RDX's value is saved and
// restored around the division: RAX and RDX are reserved around every
// idiv.
func (e *Emitter) emitDivMod(q Quad, alloc *AllocResult) {
	size := q.Result.Type.Size()
	b := e.operandReg(q.Arg2, alloc, true)
	for i, w := range regWidths["rdx"] {
		if b == "%"+w {
			moved := "%" + regWidths[scratch2Int][i]
			e.line("\tmov %s, %s", b, moved)
			b = moved
		}
	}
	e.line("\tpush %%rdx")
	e.loadInto(q.Arg1, alloc, "rax")
	if q.Arg1.Type != nil && q.Arg1.Type.Unsigned {
		e.line("\txor %%rdx, %%rdx")
	} else {
		e.line("\tcqto")
	}
	if q.Arg1.Type != nil && q.Arg1.Type.Unsigned {
		e.line("\tdiv %s", b)
	} else {
		e.line("\tidiv %s", b)
	}
	if q.Op == OpMod {
		e.line("\tmov %%rdx, %%rax")
	}
	e.line("\tpop %%rdx")
	e.storeResult(q.Result, regAt("rax", size), alloc)
}

// emitShift's count operand is pinned to %cl by the ISA, which collides
// with rcx's other life as a pool register: if the shifted value already
// lives there, it has to move out of the way before the count overwrites it.
func (e *Emitter) emitShift(q Quad, alloc *AllocResult, left bool) {
	a := e.operandReg(q.Arg1, alloc, false)
	if isRCXFamily(a) {
		size := int64(8)
		if q.Arg1.Type != nil {
			size = q.Arg1.Type.Size()
		}
		moved := regAt(scratch2Int, size)
		e.line("\tmov %s, %s", a, moved)
		a = moved
	}
	e.loadInto(q.Arg2, alloc, "rcx")
	mnemonic := "shl"
	if !left {
		mnemonic = "sar"
		if q.Arg1.Type != nil && q.Arg1.Type.Unsigned {
			mnemonic = "shr"
		}
	}
	e.line("\t%s %%cl, %s", mnemonic, a)
	e.storeResult(q.Result, a, alloc)
}

func (e *Emitter) emitFloatBinary(q Quad, alloc *AllocResult, base string) {
	wide := q.Result.Type != nil && q.Result.Type.Kind == KDouble
	suffix := "ss"
	if wide {
		suffix = "sd"
	}
	a := e.operandReg(q.Arg1, alloc, false)
	b := e.operandReg(q.Arg2, alloc, true)
	e.line("\t%s%s %s, %s", base, suffix, b, a)
	e.storeResult(q.Result, a, alloc)
}

func (e *Emitter) emitNeg(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.line("\tneg %s", a)
	e.storeResult(q.Result, a, alloc)
}

func (e *Emitter) emitFNeg(q Quad, alloc *AllocResult) {
	wide := q.Result.Type != nil && q.Result.Type.Kind == KDouble
	a := e.operandReg(q.Arg1, alloc, false)
	suffix := "ss"
	if wide {
		suffix = "sd"
	}
	e.line("\txor%s %%xmm2, %%xmm2", suffix)
	e.line("\tsub%s %s, %%xmm2", suffix, a)
	e.storeResult(q.Result, "%xmm2", alloc)
}

func (e *Emitter) emitNot(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.line("\tnot %s", a)
	e.storeResult(q.Result, a, alloc)
}

func (e *Emitter) emitLNot(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.line("\ttest %s, %s", a, a)
	e.line("\tsete %%al")
	e.line("\tmovzbl %%al, %%eax")
	e.storeResult(q.Result, "%eax", alloc)
}

var intSetcc = map[Opcode]string{
	OpCmpEq: "sete", OpCmpNe: "setne", OpCmpLt: "setl", OpCmpLe: "setle", OpCmpGt: "setg", OpCmpGe: "setge",
}
var uintSetcc = map[Opcode]string{
	OpCmpEq: "sete", OpCmpNe: "setne", OpCmpLt: "setb", OpCmpLe: "setbe", OpCmpGt: "seta", OpCmpGe: "setae",
}

func (e *Emitter) emitIntCompare(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	b := e.operandReg(q.Arg2, alloc, true)
	e.line("\tcmp %s, %s", b, a)
	table := intSetcc
	if q.Arg1.Type != nil && q.Arg1.Type.Unsigned {
		table = uintSetcc
	}
	e.line("\t%s %%al", table[q.Op])
	e.line("\tmovzbl %%al, %%eax")
	e.storeResult(q.Result, "%eax", alloc)
}

// emitFloatCompare reads the zero and carry flags that ucomiss/ucomisd set
// and never checks the parity flag, so NaN is not special-cased: an
// unordered result sets ZF, PF and CF together, which makes ==, < and <=
// read as true and !=, > and >= read as false.
func (e *Emitter) emitFloatCompare(q Quad, alloc *AllocResult) {
	wide := q.Arg1.Type != nil && q.Arg1.Type.Kind == KDouble
	instr := "ucomiss"
	if wide {
		instr = "ucomisd"
	}
	a := e.operandReg(q.Arg1, alloc, false)
	b := e.operandReg(q.Arg2, alloc, true)
	e.line("\t%s %s, %s", instr, b, a)
	setcc := map[Opcode]string{
		OpFCmpEq: "sete", OpFCmpNe: "setne", OpFCmpLt: "setb", OpFCmpLe: "setbe", OpFCmpGt: "seta", OpFCmpGe: "setae",
	}[q.Op]
	e.line("\t%s %%al", setcc)
	e.line("\tmovzbl %%al, %%eax")
	e.storeResult(q.Result, "%eax", alloc)
}

func (e *Emitter) emitMove(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.storeResult(q.Result, a, alloc)
}

func (e *Emitter) emitLoad(q Quad, alloc *AllocResult) {
	addr := e.operandReg(q.Arg1, alloc, false)
	size := q.Result.Type.Size()
	if q.Result.Type.IsFloat() {
		instr := "movss"
		if q.Result.Type.Kind == KDouble {
			instr = "movsd"
		}
		e.line("\t%s (%s), %%xmm2", instr, addr)
		e.storeResult(q.Result, "%xmm2", alloc)
		return
	}
	e.line("\tmov%s (%s), %s", movSuffix(size), addr, regAt("rax", size))
	e.storeResult(q.Result, regAt("rax", size), alloc)
}

// emitStore handles OpStore's two shapes: a direct store into a named
// slot when Result is itself a Local/Global operand (the common case for
// `x = ...`, where no address was ever materialized), and a store through
// a dereferenced address when Result is a temp/spill holding a pointer
// value computed by OpAddr or pointer arithmetic.
func (e *Emitter) emitStore(q Quad, alloc *AllocResult) {
	valTy := q.Arg1.Type
	isFloat := valTy != nil && valTy.IsFloat()

	if q.Result.Kind == OperandLocal || q.Result.Kind == OperandGlobal {
		dst := e.memOrReg(q.Result, alloc)
		if isFloat {
			v := e.operandReg(q.Arg1, alloc, false)
			instr := "movss"
			if valTy.Kind == KDouble {
				instr = "movsd"
			}
			e.line("\t%s %s, %s", instr, v, dst)
			return
		}
		size := q.Result.Type.Size()
		v := e.operandReg(q.Arg1, alloc, false)
		e.line("\tmov%s %s, %s", movSuffix(size), sizedReg(v, size), dst)
		return
	}

	addr := e.operandReg(q.Result, alloc, false)
	if isFloat {
		v := e.operandReg(q.Arg1, alloc, true)
		instr := "movss"
		if valTy.Kind == KDouble {
			instr = "movsd"
		}
		e.line("\t%s %s, (%s)", instr, v, addr)
		return
	}
	size := int64(8)
	if valTy != nil {
		size = valTy.Size()
	}
	v := e.operandReg(q.Arg1, alloc, true)
	e.line("\tmov%s %s, (%s)", movSuffix(size), sizedReg(v, size), addr)
}

func (e *Emitter) emitAddr(q Quad, alloc *AllocResult) {
	mem := e.memOrReg(q.Arg1, alloc)
	e.line("\tlea %s, %%rax", mem)
	e.storeResult(q.Result, "%rax", alloc)
}

func (e *Emitter) emitIntToFloat(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	instr := "cvtsi2ss"
	if q.Result.Type.Kind == KDouble {
		instr = "cvtsi2sd"
	}
	e.line("\t%s %s, %%xmm2", instr, a)
	e.storeResult(q.Result, "%xmm2", alloc)
}

func (e *Emitter) emitFloatToInt(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	instr := "cvttss2si"
	if q.Arg1.Type != nil && q.Arg1.Type.Kind == KDouble {
		instr = "cvttsd2si"
	}
	e.line("\t%s %s, %%rax", instr, a)
	e.storeResult(q.Result, regAt("rax", q.Result.Type.Size()), alloc)
}

func (e *Emitter) emitExtend(q Quad, alloc *AllocResult, signed bool) {
	a := e.operandReg(q.Arg1, alloc, false)
	srcSize := int64(4)
	if q.Arg1.Type != nil {
		srcSize = q.Arg1.Type.Size()
	}
	dstSize := q.Result.Type.Size()
	if srcSize == dstSize {
		e.storeResult(q.Result, a, alloc)
		return
	}
	if !signed && srcSize == 4 {
		// No movzlq exists: writing a 32-bit register already zeroes the
		// upper 32 bits of its parent 64-bit register on this ISA.
		e.storeResult(q.Result, a, alloc)
		return
	}
	mnemonic := "movz"
	if signed {
		mnemonic = "movs"
	}
	suffix := movSuffix(srcSize) + movSuffix(dstSize)
	e.line("\t%s%s %s, %s", mnemonic, suffix, a, regAt("rax", dstSize))
	e.storeResult(q.Result, regAt("rax", dstSize), alloc)
}

func (e *Emitter) emitTrunc(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.storeResult(q.Result, sizedReg(a, q.Result.Type.Size()), alloc)
}

func (e *Emitter) emitFloatWiden(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.line("\tcvtss2sd %s, %%xmm2", a)
	e.storeResult(q.Result, "%xmm2", alloc)
}

func (e *Emitter) emitFloatNarrow(q Quad, alloc *AllocResult) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.line("\tcvtsd2ss %s, %%xmm2", a)
	e.storeResult(q.Result, "%xmm2", alloc)
}

// emitParam accumulates OpParam operands until the OpCall that consumes
// them; the IR emits them as separate quads, in argument order,
// immediately before the call.
func (e *Emitter) emitParam(q Quad, alloc *AllocResult) {
	e.pendingParams = append(e.pendingParams, q.Arg1)
}

// emitCall stages every argument's value into a fresh block below rsp
// before touching a single argument register, so that evaluating argument
// k never reads through a register argument k-1 already overwrote (rdx
// and rcx double as both pool registers and argument registers 3 and 4).
// It does not spill temps that are live across the call itself -- every
// register in gprPool is caller-saved by the SysV convention, so a value
// the allocator left resident in one does not survive a call it did not
// know about. This is accepted as part of the straightforward, not fully
// liveness-exact allocator regalloc.go already documents.
func (e *Emitter) emitCall(q Quad, alloc *AllocResult) {
	args := e.pendingParams
	e.pendingParams = nil

	argSpace := alignUp(int64(len(args))*8, 16)
	if argSpace > 0 {
		e.line("\tsub $%d, %%rsp", argSpace)
	}

	isFloatArg := make([]bool, len(args))
	isWideArg := make([]bool, len(args))
	sizes := make([]int64, len(args))
	for i, a := range args {
		isFloatArg[i] = a.Type != nil && a.Type.IsFloat()
		isWideArg[i] = isFloatArg[i] && a.Type.Kind == KDouble
		sizes[i] = int64(8)
		if a.Type != nil {
			sizes[i] = a.Type.Size()
		}
		if isFloatArg[i] {
			reg := e.operandReg(a, alloc, false)
			instr := "movss"
			if isWideArg[i] {
				instr = "movsd"
			}
			e.line("\t%s %s, %d(%%rsp)", instr, reg, i*8)
		} else {
			reg := e.operandReg(a, alloc, false)
			e.line("\tmov%s %s, %d(%%rsp)", movSuffix(sizes[i]), reg, i*8)
		}
	}

	gi, xi := 0, 0
	for i := range args {
		if isFloatArg[i] {
			if xi < len(argXMMs) {
				instr := "movss"
				if isWideArg[i] {
					instr = "movsd"
				}
				e.line("\t%s %d(%%rsp), %%%s", instr, i*8, argXMMs[xi])
			}
			xi++
		} else {
			if gi < len(argGPRs) {
				e.line("\tmov%s %d(%%rsp), %s", movSuffix(sizes[i]), i*8, regAt(argGPRs[gi], sizes[i]))
			}
			gi++
		}
	}
	if argSpace > 0 {
		e.line("\tadd $%d, %%rsp", argSpace)
	}
	if xi > 0 {
		e.line("\tmov $%d, %%al", xi)
	}
	if q.Arg1.Kind == OperandGlobal {
		e.line("\tcall %s", q.Arg1.Name)
	} else {
		reg := e.operandReg(q.Arg1, alloc, false)
		e.line("\tcall *%s", reg)
	}
	if q.Result.Type != nil && q.Result.Type.Kind != KVoid {
		if q.Result.Type.IsFloat() {
			e.storeResult(q.Result, "%xmm0", alloc)
		} else {
			e.storeResult(q.Result, regAt("rax", q.Result.Type.Size()), alloc)
		}
	}
}

func (e *Emitter) emitCondJump(q Quad, alloc *AllocResult, mnemonic string) {
	a := e.operandReg(q.Arg1, alloc, false)
	e.line("\ttest %s, %s", a, a)
	e.line("\t%s %s", mnemonic, q.Result.Label)
}

func (e *Emitter) emitReturn(q Quad, alloc *AllocResult) {
	if q.Arg1.Kind != OperandNone {
		if q.Arg1.Type != nil && q.Arg1.Type.IsFloat() {
			reg := e.operandReg(q.Arg1, alloc, false)
			if reg != "%xmm0" {
				instr := "movss"
				if q.Arg1.Type.Kind == KDouble {
					instr = "movsd"
				}
				e.line("\t%s %s, %%xmm0", instr, reg)
			}
		} else {
			reg := e.operandReg(q.Arg1, alloc, false)
			if reg != "%rax" && sizedReg(reg, 8) != "%rax" {
				e.line("\tmov %s, %%rax", reg)
			}
		}
	}
	e.line("\tleave")
	e.line("\tret")
}
