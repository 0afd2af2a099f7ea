package vm_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/ir"
	"github.com/funvibe/kestrel/internal/lexer"
	"github.com/funvibe/kestrel/internal/linker"
	"github.com/funvibe/kestrel/internal/parser"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/resolver"
	"github.com/funvibe/kestrel/internal/vm"
)

func link(t *testing.T, input string) *linker.Program {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&resolver.ResolverProcessor{},
		&ir.CompilerProcessor{},
		&linker.LinkerProcessor{},
	).Run(ctx)
	if ctx.Failed() {
		t.Fatalf("compile %q: %v", input, ctx.Errors)
	}
	return ctx.Program.(*linker.Program)
}

// runVM compiles and runs input, returning the result and the printed output.
func runVM(t *testing.T, input string, opts ...vm.Option) (*vm.Result, string, error) {
	t.Helper()
	var out bytes.Buffer
	machine, err := vm.New(link(t, input), append([]vm.Option{vm.WithOutput(&out)}, opts...)...)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	result, err := machine.Run()
	return result, out.String(), err
}

func testIntegerOperand(t *testing.T, name string, op ir.Operand, expected int64) {
	t.Helper()
	if op.Kind != ir.OperandInt {
		t.Errorf("%s is %s, want int", name, op.Kind)
		return
	}
	if op.AsInt() != expected {
		t.Errorf("%s = %d, want %d", name, op.AsInt(), expected)
	}
}

func testFloatOperand(t *testing.T, name string, op ir.Operand, expected float64) {
	t.Helper()
	if op.Kind != ir.OperandFloat {
		t.Errorf("%s is %s, want float", name, op.Kind)
		return
	}
	if op.AsFloat() != expected {
		t.Errorf("%s = %g, want %g", name, op.AsFloat(), expected)
	}
}

func TestArithmeticScenario(t *testing.T) {
	result, _, err := runVM(t, "var a = 10 + 2; var b = (a * 2) - (3 + 1); var c = b / 10.0;")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != vm.StatusOK {
		t.Fatalf("status %d", result.Status)
	}
	testIntegerOperand(t, "a", result.Globals["a"], 12)
	testIntegerOperand(t, "b", result.Globals["b"], 20)
	testFloatOperand(t, "c", result.Globals["c"], 2.0)
}

func TestLoopScenario(t *testing.T) {
	result, _, err := runVM(t, "var sum = 0; for (var i = 0; i <= 10; i += 1) [ sum += i; ]")
	if err != nil {
		t.Fatal(err)
	}
	testIntegerOperand(t, "sum", result.Globals["sum"], 55)
	if len(result.Registers) == 0 {
		t.Errorf("empty register snapshot")
	}
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"print_kinds", `print 1; print 2.5; print 4.0; print true; print 'k'; print "str";`, "1\n2.5\n4.0\ntrue\nk\nstr\n"},
		{"integer_ops", "print 7 / 2; print 7 % 3; print -7 / 2; print 6 & 3; print 6 | 3; print 6 ^ 3; print 1 << 4; print -16 >> 2;", "3\n1\n-3\n2\n7\n5\n16\n-4\n"},
		{"promotion", "print 1 + 2.5; print 3 * 0.5; print 1 < 1.5; print 2.0 >= 2;", "3.5\n1.5\ntrue\ntrue\n"},
		{"equality", "print 1 == 1; print 1 != 2; print true == false; print 'a' == 'a'; print 1 == 1.0;", "true\ntrue\nfalse\ntrue\nfalse\n"},
		{"chars", "print 'a' < 'b'; print 'z' <= 'a';", "true\nfalse\n"},
		{"unary", "var x = 5; print -x; print !(x > 3); print -2.5;", "-5\nfalse\n-2.5\n"},
		{"if_else", "var x = 3; if (x > 2) print \"big\"; else print \"small\"; if (x > 5) print \"huge\";", "big\n"},
		{"while_break", "var i = 0; while (true) { if (i == 3) break; print i; i += 1; }", "0\n1\n2\n"},
		{"nested_loops", "for (var i = 0; i < 2; i += 1) { for (var j = 0; j < 2; j += 1) { print i * 10 + j; } }", "0\n1\n10\n11\n"},
		{"shadowing", "var a = 1; { var a = 2; print a; } print a;", "2\n1\n"},
		{
			"short_circuit",
			"var n = 0; fun bump(): bool { n += 1; return true; } print false and bump(); print true or bump(); print true and bump(); print n;",
			"false\ntrue\ntrue\n1\n",
		},
		{
			"functions",
			"fun add(a: int, b: int): int { return a + b; } fun half(x: float): float { return x / 2; } print add(2, 3); print half(5.0);",
			"5\n2.5\n",
		},
		{
			"recursion",
			"fun fib(n: int): int { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(15);",
			"610\n",
		},
		{
			"globals_in_functions",
			"var total = 0; fun add(n: int) { total += n; } add(4); add(5); print total;",
			"9\n",
		},
		{
			"procedure_return",
			"fun show(x: int) { if (x > 1) { print \"many\"; return; } print \"one\"; } show(1); show(2);",
			"one\nmany\n",
		},
		{
			"nested_call_arguments",
			"fun sub(a: int, b: int): int { return a - b; } print sub(sub(10, 3), sub(4, 2));",
			"5\n",
		},
		{"pointer_arithmetic", `var s = "hello"; print s + 1; print s + 4 - 2;`, "ello\nllo\n"},
		{"compound_float", "var f = 1.5; f *= 2.0; f -= 0.5; print f;", "2.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := runVM(t, tt.input)
			if err != nil {
				t.Fatalf("runtime error: %v", err)
			}
			if out != tt.expected {
				t.Errorf("output:\n%s\nwant:\n%s", out, tt.expected)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"int_div", "var z = 0; print 1 / z;", "division by zero"},
		{"int_mod", "var z = 0; print 10 % z;", "division by zero"},
		{"float_div", "var z = 0.0; print 1.0 / z;", "division by zero"},
		{"mixed_div", "var z = 0; print 1.5 / z;", "division by zero"},
		{"negative_shift", "var s = -1; print 1 << s;", "negative shift count -1"},
		{"stack_overflow", "fun f(n: int): int { return f(n + 1); } print f(0);", "stack overflow"},
		{"no_bridge", `extern "strlen" as strLen(s: [char]): int; print strLen("x");`, "no foreign-call bridge to call strlen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := runVM(t, tt.input)
			if err == nil {
				t.Fatalf("expected runtime error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
			if result.Status == vm.StatusOK {
				t.Errorf("status should be non-zero")
			}
			if _, ok := err.(*vm.RuntimeError); !ok {
				t.Errorf("error is %T, want *vm.RuntimeError", err)
			}
		})
	}
}

func TestErrorKeepsEarlierStores(t *testing.T) {
	result, out, err := runVM(t, "var a = 1; print a; var z = 0; var b = a / z; a = 5;")
	if err == nil {
		t.Fatal("expected division error")
	}
	if out != "1\n" {
		t.Errorf("output before the error = %q", out)
	}
	testIntegerOperand(t, "a", result.Globals["a"], 1)
	if rerr := err.(*vm.RuntimeError); rerr.Line != 1 {
		t.Errorf("error line = %d", rerr.Line)
	}
}

func TestLimits(t *testing.T) {
	prog := link(t, "var a = 1; var b = a + 1; var c = b + 1;")
	if _, err := vm.New(prog, vm.WithWindowSize(2)); err == nil || !strings.Contains(err.Error(), "window holds 2") {
		t.Errorf("expected a window size error, got %v", err)
	}

	_, _, err := runVM(t, "fun f(n: int): int { if (n == 0) return 0; return f(n - 1); } print f(50);", vm.WithCallDepth(10))
	if err == nil || !strings.Contains(err.Error(), "stack overflow") {
		t.Errorf("expected stack overflow at depth 10, got %v", err)
	}

	_, out, err := runVM(t, "fun f(n: int): int { if (n == 0) return 0; return f(n - 1); } print f(50);", vm.WithCallDepth(100))
	if err != nil || out != "0\n" {
		t.Errorf("depth 100: %q, %v", out, err)
	}

	_, _, err = runVM(t, "fun f(a: int, b: int, c: int): int { return a; } print f(1, 2, 3);", vm.WithStackLimit(2))
	if err == nil || !strings.Contains(err.Error(), "value stack overflow") {
		t.Errorf("expected value stack overflow, got %v", err)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := runVM(t, "while (true) { }", vm.WithContext(ctx))
	if err == nil || !strings.Contains(err.Error(), "context canceled") {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestHaltIsFatal(t *testing.T) {
	saved := gc.Fatal
	defer func() { gc.Fatal = saved }()
	gc.Fatal = func(format string, args ...interface{}) {
		panic(fmt.Sprintf(format, args...))
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected halt")
		}
		if msg := r.(string); !strings.Contains(msg, "f ended without returning a value") {
			t.Errorf("halt message %q", msg)
		}
	}()
	runVM(t, "fun f(b: bool): int { if (b) return 1; } print f(false);")
}

type fakeBridge struct {
	symbol string
	args   []ir.Operand
	ret    ir.Type
	base   uint64
}

func (b *fakeBridge) Call(symbol string, args []ir.Operand, ret ir.Type, base uint64) (ir.Operand, error) {
	b.symbol, b.args, b.ret, b.base = symbol, args, ret, base
	if symbol == "fail" {
		return ir.Operand{}, fmt.Errorf("native failure")
	}
	if ret.Kind == ir.TypePointer {
		return ir.AddressOp(0x1000), nil
	}
	return ir.IntOp(42), nil
}

func TestPointerArithmeticScalesByElement(t *testing.T) {
	result, _, err := runVM(t, `
extern "ints" as ints(): [int];
extern "doubles" as doubles(): [float];
extern "chars" as chars(): [char];
var i = ints() + 3;
var back = i - 1;
var d = doubles() + 2;
var c = chars() + 3;`, vm.WithBridge(&fakeBridge{}))
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]uint64{
		"i":    0x1000 + 3*4,
		"back": 0x1000 + 2*4,
		"d":    0x1000 + 2*8,
		"c":    0x1000 + 3,
	}
	for name, want := range tests {
		op := result.Globals[name]
		if op.Kind != ir.OperandPointer || op.Data != want {
			t.Errorf("%s = %s (%#x), want pointer %#x", name, op.Kind, op.Data, want)
		}
	}
}

func TestNativeCalls(t *testing.T) {
	prog := link(t, `extern "strcmp" as strCmp(a: [char], b: [char]): int; var r = strCmp("abc", "abd");`)
	if err := linker.Relocate(prog, 0x4000); err != nil {
		t.Fatal(err)
	}
	bridge := &fakeBridge{}
	machine, err := vm.New(prog, vm.WithBridge(bridge))
	if err != nil {
		t.Fatal(err)
	}
	result, err := machine.Run()
	if err != nil {
		t.Fatal(err)
	}
	testIntegerOperand(t, "r", result.Globals["r"], 42)
	if bridge.symbol != "strcmp" || !bridge.ret.Equal(ir.Int) || bridge.base != 0x4000 {
		t.Errorf("bridge saw %s -> %s at %#x", bridge.symbol, bridge.ret, bridge.base)
	}
	if len(bridge.args) != 2 || !bridge.args[0].Relocated || bridge.args[0].Data != 0x4000 || bridge.args[1].Data != 0x4004 {
		t.Errorf("arguments = %v", bridge.args)
	}

	_, _, err = runVM(t, `extern "fail" as boom(): int; print boom();`, vm.WithBridge(&fakeBridge{}))
	if err == nil || !strings.Contains(err.Error(), "boom: native failure") {
		t.Errorf("expected native failure, got %v", err)
	}
}

func TestRelocatedStringsPrint(t *testing.T) {
	prog := link(t, `print "relocated";`)
	if err := linker.Relocate(prog, 0x10000); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	machine, err := vm.New(prog, vm.WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := machine.Run(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "relocated\n" {
		t.Errorf("output %q", out.String())
	}
}

func TestImageRuns(t *testing.T) {
	data, err := linker.Marshal(link(t, "fun sq(x: int): int { return x * x; } print sq(9);"))
	if err != nil {
		t.Fatal(err)
	}
	prog, err := linker.Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	machine, err := vm.New(prog, vm.WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := machine.Run(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "81\n" {
		t.Errorf("output %q", out.String())
	}
}
