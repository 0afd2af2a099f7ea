package ir_test

import (
	"strings"
	"testing"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/ir"
	"github.com/funvibe/kestrel/internal/lexer"
	"github.com/funvibe/kestrel/internal/parser"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/resolver"
)

func frontEnd(t *testing.T, input string) *pipeline.PipelineContext {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&resolver.ResolverProcessor{},
	).Run(ctx)
	if ctx.Failed() {
		t.Fatalf("front end failed for %q: %v", input, ctx.Errors)
	}
	return ctx
}

func compile(t *testing.T, input string) *ir.Module {
	t.Helper()
	ctx := frontEnd(t, input)
	module, errs := ir.Generate(ctx.AstRoot.Statements, ctx.Locals)
	if len(errs) > 0 {
		t.Fatalf("compile %q: %v", input, errs)
	}
	return module
}

func TestBinaryResult(t *testing.T) {
	charPtr := ir.PointerTo(ir.Char)
	tests := []struct {
		op       ir.Opcode
		l, r     ir.Type
		expected ir.Type
		ok       bool
	}{
		{ir.OP_ADD, ir.Int, ir.Int, ir.Int, true},
		{ir.OP_SUB, ir.Int, ir.Float, ir.Float, true},
		{ir.OP_MUL, ir.Float, ir.Int, ir.Float, true},
		{ir.OP_DIV, ir.Float, ir.Float, ir.Float, true},
		{ir.OP_DIV, ir.Int, ir.Int, ir.Int, true},
		{ir.OP_MOD, ir.Int, ir.Int, ir.Int, true},
		{ir.OP_MOD, ir.Float, ir.Int, ir.Nil, false},
		{ir.OP_BAND, ir.Int, ir.Int, ir.Int, true},
		{ir.OP_LSHIFT, ir.Int, ir.Float, ir.Nil, false},
		{ir.OP_LT, ir.Int, ir.Float, ir.Bool, true},
		{ir.OP_GE, ir.Char, ir.Char, ir.Bool, true},
		{ir.OP_LT, ir.Bool, ir.Bool, ir.Nil, false},
		{ir.OP_EQ, ir.Bool, ir.Bool, ir.Bool, true},
		{ir.OP_EQ, ir.Bool, ir.Int, ir.Nil, false},
		{ir.OP_NE, charPtr, charPtr, ir.Bool, true},
		{ir.OP_EQ, charPtr, ir.PointerTo(ir.Int), ir.Nil, false},
		{ir.OP_ADD, charPtr, ir.Int, charPtr, true},
		{ir.OP_ADD, ir.Int, charPtr, ir.Nil, false},
		{ir.OP_ADD, ir.Bool, ir.Bool, ir.Nil, false},
		{ir.OP_ADD, ir.Char, ir.Char, ir.Nil, false},
	}

	for _, tt := range tests {
		got, ok := ir.BinaryResult(tt.op, tt.l, tt.r)
		if ok != tt.ok {
			t.Errorf("%s %s %s: ok=%v, want %v", tt.l, tt.op, tt.r, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.expected) {
			t.Errorf("%s %s %s = %s, want %s", tt.l, tt.op, tt.r, got, tt.expected)
		}
	}
}

func TestUnaryResult(t *testing.T) {
	if got, ok := ir.UnaryResult(ir.OP_NEG, ir.Float); !ok || !got.Equal(ir.Float) {
		t.Errorf("-float = %s, %v", got, ok)
	}
	if _, ok := ir.UnaryResult(ir.OP_NEG, ir.Bool); ok {
		t.Errorf("-bool should be rejected")
	}
	if got, ok := ir.UnaryResult(ir.OP_NOT, ir.Bool); !ok || !got.Equal(ir.Bool) {
		t.Errorf("!bool = %s, %v", got, ok)
	}
	if _, ok := ir.UnaryResult(ir.OP_NOT, ir.Int); ok {
		t.Errorf("!int should be rejected")
	}
}

func TestTypeFromAnnotation(t *testing.T) {
	tests := []struct {
		expr     *ast.TypeExpr
		expected string
	}{
		{&ast.TypeExpr{Name: "int"}, "int"},
		{&ast.TypeExpr{Name: "Float"}, "float"},
		{&ast.TypeExpr{Name: "BOOL"}, "bool"},
		{&ast.TypeExpr{Elem: &ast.TypeExpr{Name: "char"}}, "[char]"},
	}
	for _, tt := range tests {
		got, err := ir.TypeFromAnnotation(tt.expr)
		if err != nil {
			t.Errorf("%s: %v", tt.expr, err)
			continue
		}
		if got.String() != tt.expected {
			t.Errorf("%s: got %s, want %s", tt.expr, got, tt.expected)
		}
	}

	bad := []*ast.TypeExpr{
		nil,
		{Name: "string"},
		{Elem: &ast.TypeExpr{Elem: &ast.TypeExpr{Name: "int"}}},
	}
	for _, te := range bad {
		if _, err := ir.TypeFromAnnotation(te); err == nil {
			t.Errorf("%s: expected an error", te)
		}
	}
}

func TestGlobalsAndTypes(t *testing.T) {
	m := compile(t, "var a = 10 + 2; var b = (a * 2) - (3 + 1); var c = b / 10.0;")
	main := m.Chunks[0]
	if main.Name != ir.TopLevel {
		t.Fatalf("first chunk is %s", main.Name)
	}
	expected := map[string]ir.Type{"a": ir.Int, "b": ir.Int, "c": ir.Float}
	for name, typ := range expected {
		slot, ok := m.Globals[name]
		if !ok {
			t.Fatalf("global %s missing", name)
		}
		if !main.Types[slot].Equal(typ) {
			t.Errorf("%s has type %s, want %s", name, main.Types[slot], typ)
		}
	}
	last := main.Code[len(main.Code)-1]
	if last.Op != ir.OP_END {
		t.Errorf("top level ends with %s", last.Op)
	}
}

func TestFunctionChunks(t *testing.T) {
	m := compile(t, `
print twice(21);
fun twice(n: int): int { return n * 2; }
fun show(x: float) { print x; }
`)
	if len(m.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(m.Chunks))
	}
	twice := m.Chunks[m.Functions["twice"]]
	if len(twice.Params) != 1 || !twice.Params[0].Equal(ir.Int) || !twice.Return.Equal(ir.Int) {
		t.Errorf("twice signature: %v -> %s", twice.Params, twice.Return)
	}
	if last := twice.Code[len(twice.Code)-1]; last.Op != ir.OP_HALT {
		t.Errorf("value-returning function should end in HALT, got %s", last.Op)
	}
	show := m.Chunks[m.Functions["show"]]
	if last := show.Code[len(show.Code)-1]; last.Op != ir.OP_RETURN {
		t.Errorf("procedure should end in RETURN, got %s", last.Op)
	}

	var call *ir.Instruction
	for i := range m.Chunks[0].Code {
		if m.Chunks[0].Code[i].Op == ir.OP_CALL {
			call = &m.Chunks[0].Code[i]
		}
	}
	if call == nil {
		t.Fatalf("no call emitted:\n%s", m.Dump())
	}
	if call.Name != "twice" || call.B.AsInt() != 1 || call.Dest == ir.NoDest {
		t.Errorf("unexpected call %s", call)
	}
}

func TestGlobalsInsideFunctions(t *testing.T) {
	m := compile(t, "var total = 0; fun add(n: int) { total += n; } add(3);")
	add := m.Chunks[m.Functions["add"]]
	var ops []ir.Opcode
	for _, ins := range add.Code {
		ops = append(ops, ins.Op)
	}
	expected := []ir.Opcode{ir.OP_GET_GLOBAL, ir.OP_ADD, ir.OP_SET_GLOBAL, ir.OP_RETURN}
	if len(ops) != len(expected) {
		t.Fatalf("got %v, want %v", ops, expected)
	}
	for i := range ops {
		if ops[i] != expected[i] {
			t.Fatalf("got %v, want %v", ops, expected)
		}
	}
	if add.Code[0].A.Temp() != m.Globals["total"] {
		t.Errorf("GET_GLOBAL reads slot %d, want %d", add.Code[0].A.Temp(), m.Globals["total"])
	}
}

func TestControlFlowLabels(t *testing.T) {
	m := compile(t, "var sum = 0; for (var i = 0; i <= 10; i += 1) [ if (i == 5) break; sum += i; ]")
	labels := map[int64]int{}
	jumps := map[int64]bool{}
	for _, ins := range m.Chunks[0].Code {
		switch ins.Op {
		case ir.OP_LABEL:
			labels[ins.A.AsInt()]++
		case ir.OP_JUMP:
			jumps[ins.A.AsInt()] = true
		case ir.OP_JUMP_UNLESS:
			jumps[ins.B.AsInt()] = true
		}
	}
	for label, n := range labels {
		if n != 1 {
			t.Errorf("label %d placed %d times", label, n)
		}
	}
	for label := range jumps {
		if labels[label] != 1 {
			t.Errorf("jump to unplaced label %d", label)
		}
	}
	if _, ok := m.Globals["i"]; ok {
		t.Errorf("loop variable leaked into globals")
	}
}

func TestStringData(t *testing.T) {
	m := compile(t, `extern "strcmp" as strCmp(a: [char], b: [char]): int; print strCmp("abc", "abc"); print "xy";`)
	if string(m.Data) != "abc\x00xy\x00" {
		t.Errorf("data section = %q", m.Data)
	}
	if len(m.Externs) != 1 || m.Externs[0].Symbol != "strcmp" || m.Externs[0].Name != "strCmp" {
		t.Fatalf("externs = %+v", m.Externs)
	}
	s, ok := ir.String(m.Data, 4)
	if !ok || s != "xy" {
		t.Errorf("String(4) = %q, %v", s, ok)
	}

	var native *ir.Instruction
	params := 0
	for i, ins := range m.Chunks[0].Code {
		switch ins.Op {
		case ir.OP_PARAM:
			params++
			if ins.A.Kind != ir.OperandPointer || ins.A.Data != 0 {
				t.Errorf("argument %s should point at offset 0", ins.A)
			}
		case ir.OP_CALL_NATIVE:
			native = &m.Chunks[0].Code[i]
		}
	}
	if native == nil || params != 2 || native.A.AsInt() != 0 {
		t.Errorf("native call not lowered:\n%s", m.Dump())
	}
}

func TestLogicalLowering(t *testing.T) {
	m := compile(t, "var a = true; var b = a and false or !a;")
	for _, ins := range m.Chunks[0].Code {
		if ins.Op == ir.OP_JUMP_UNLESS && !m.Chunks[0].Types[ins.A.Temp()].Equal(ir.Bool) {
			t.Errorf("condition %s is not bool", ins.A)
		}
	}
	if !m.Chunks[0].Types[m.Globals["b"]].Equal(ir.Bool) {
		t.Errorf("b should be bool")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"mixed_bool", "var x = 1 + true;", "operator + not defined for int and bool"},
		{"float_modulus", "var x = 1.5 % 2;", "operator % not defined for float and int"},
		{"bitwise_float", "var x = 1 | 2.0;", "not defined for int and float"},
		{"assign_mismatch", "var x = 1; x = 2.5;", "cannot assign float to x of type int"},
		{"compound_mismatch", "var x = 1; x += 0.5;", "cannot assign float to x of type int"},
		{"annotation_mismatch", "var x: float = 1;", "cannot initialize x of type float with int"},
		{"needs_type", "var x;", "needs a type or an initializer"},
		{"nil_init", "var x = null;", "cannot infer the type"},
		{"condition", "if (1) print 1;", "condition must be bool, got int"},
		{"untyped_param", "fun f(a) { }", "parameter a needs a type annotation"},
		{"unknown_type", "fun f(a: string) { }", `unknown type "string"`},
		{"arity", "fun f(a: int) { } f(1, 2);", "f expects 1 arguments, got 2"},
		{"argument_type", "fun f(a: int) { } f(true);", "argument 1 of f must be int, got bool"},
		{"return_type", "fun f(): int { return true; }", "f returns int, got bool"},
		{"missing_return_value", "fun f(): int { return; }", "must return a value of type int"},
		{"undefined", "print y;", "undefined variable y"},
		{"use_before_declaration", "print y; var y = 1;", "undefined variable y"},
		{"redeclared_global", "var a = 1; var a = 2;", "variable a is already declared"},
		{"redeclared_function", "fun f() { } fun f() { }", "function f is already declared"},
		{"not_a_function", "var g = 1; g();", "g is not a function"},
		{"function_value", "fun f() { } var g = f;", "function f can only be called"},
		{"classes", "class A { }", "classes are not supported in compiled code"},
		{"lists", "var xs = [1, 2];", "lists are not supported in compiled code"},
		{"for_in", "for (x in 1) print x;", "for-in loops are not supported"},
		{"nested_function", "fun f() { fun g() { } }", "nested functions are not supported"},
		{"block_inside_function", "fun f() { var x = 1; { print x; } }", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := frontEnd(t, tt.input)
			_, errs := ir.Generate(ctx.AstRoot.Statements, ctx.Locals)
			if tt.msg == "" {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("expected error containing %q", tt.msg)
			}
			for _, err := range errs {
				if strings.Contains(err.Message, tt.msg) {
					return
				}
			}
			t.Errorf("errors %v do not mention %q", errs, tt.msg)
		})
	}
}

func TestCompilerReportsEveryStatement(t *testing.T) {
	ctx := frontEnd(t, "var a = 1 + true; var b = 2 - false; print 3;")
	_, errs := ir.Generate(ctx.AstRoot.Statements, ctx.Locals)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestCompilerProcessor(t *testing.T) {
	ctx := frontEnd(t, "var a = 1;")
	ctx = (&ir.CompilerProcessor{}).Process(ctx)
	if ctx.Failed() {
		t.Fatalf("unexpected errors: %v", ctx.Errors)
	}
	if _, ok := ctx.Module.(*ir.Module); !ok {
		t.Fatalf("module not stored on the context: %T", ctx.Module)
	}

	ctx = frontEnd(t, "var a = 1 < true;")
	ctx = (&ir.CompilerProcessor{}).Process(ctx)
	if !ctx.Failed() || ctx.Errors[0].Phase != "compiling" {
		t.Fatalf("expected a compiling diagnostic, got %v", ctx.Errors)
	}
	if ctx.Errors[0].Line != 1 {
		t.Errorf("diagnostic line = %d", ctx.Errors[0].Line)
	}
}

func TestOperandString(t *testing.T) {
	tests := []struct {
		op       ir.Operand
		expected string
	}{
		{ir.IntOp(-3), "-3"},
		{ir.FloatOp(2), "2.0"},
		{ir.BoolOp(true), "true"},
		{ir.CharOp('a'), "'a'"},
		{ir.TempOp(4), "t4"},
		{ir.PointerOp(8), "data+8"},
		{ir.AddressOp(0x10), "@0x10"},
		{ir.NilOp(), "nil"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.expected {
			t.Errorf("got %s, want %s", got, tt.expected)
		}
	}
}

func TestTypeSizeMatchesNativeMapping(t *testing.T) {
	tests := []struct {
		typ  ir.Type
		size int
	}{
		{ir.Int, 4},
		{ir.Float, 8},
		{ir.Bool, 1},
		{ir.Char, 1},
		{ir.PointerTo(ir.Int), 8},
		{ir.Nil, 0},
	}
	for _, tt := range tests {
		if got := tt.typ.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.typ, got, tt.size)
		}
	}
}
