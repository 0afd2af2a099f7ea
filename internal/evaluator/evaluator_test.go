package evaluator_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/funvibe/kestrel/internal/evaluator"
	"github.com/funvibe/kestrel/internal/lexer"
	"github.com/funvibe/kestrel/internal/object"
	"github.com/funvibe/kestrel/internal/parser"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/resolver"
)

// run interprets input on a fresh interpreter and returns what it printed.
func run(t *testing.T, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	in := evaluator.New(evaluator.WithOutput(&out))
	defer in.Shutdown()
	err := interpret(t, in, input)
	return out.String(), err
}

func interpret(t *testing.T, in *evaluator.Interpreter, input string) error {
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
	return in.Interpret(ctx.AstRoot.Statements, ctx.Locals)
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"arithmetic", "print 1 + 2 * 3; print (1 + 2) * 3; print -4 - -2;", "7\n9\n-2\n"},
		{"integer_division", "print 7 / 2; print 7 % 3; print -7 / 2;", "3\n1\n-3\n"},
		{"promotion", "print 1 + 2.5; print 4 / 2.0; print 7.5 % 2; print 3 * 0.5;", "3.5\n2.0\n1.5\n1.5\n"},
		{"strings", `print "kes" + "trel"; print "a" == "a"; print 'c';`, "kestrel\ntrue\nc\n"},
		{"comparison", "print 1 < 2; print 2 <= 1; print 2.5 > 2; print 3 >= 3;", "true\nfalse\ntrue\ntrue\n"},
		{"equality_tags", "print 1 == 1.0; print null == null; print true != false; print 1 == \"1\";", "false\ntrue\ntrue\nfalse\n"},
		{"truthiness", "print !null; print !0; print !\"\"; print !false;", "true\nfalse\nfalse\ntrue\n"},
		{"short_circuit", `print null or "x"; print false and missing; print 1 and 2; print 0 or 1;`, "x\nfalse\n2\n0\n"},
		{"bitwise", "print 6 & 3; print 6 | 3; print 6 ^ 3; print 1 << 4; print -16 >> 2;", "2\n7\n5\n16\n-4\n"},
		{"uninitialized_var", "var x; print x;", "null\n"},
		{"global_redefinition", `var a = 1; var a = "two"; print a; fun f() { return 1; } fun f() { return 2; } print f();`, "two\n2\n"},
		{"block_scope", "var a = 1; { var a = 2; print a; } print a;", "2\n1\n"},
		{"assignment_value", "var a; var b; a = b = 3; print a + b;", "6\n"},
		{"compound_assign", "var n = 10; n -= 3; n *= 2; n /= 7; n %= 3; print n;", "2\n"},
		{
			"closures",
			`fun makeCounter() { var i = 0; fun count() { i += 1; return i; } return count; }
var c = makeCounter(); print c(); print c(); var d = makeCounter(); print d();`,
			"1\n2\n1\n",
		},
		{
			"closure_captures_definition_scope",
			`var a = "global";
{ fun show() { print a; } show(); var a = "block"; show(); }`,
			"global\nglobal\n",
		},
		{"recursion", "fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(15);", "610\n"},
		{"implicit_null_return", "fun f() {} print f(); fun g() { return; } print g();", "null\nnull\n"},
		{"functions_print", "fun f() {} print f; class K {} print K;", "<fn f>\n<class K>\n"},
		{
			"loops",
			`var sum = 0; for (var i = 1; i <= 10; i += 1) { sum += i; } print sum;
var n = 0; while (true) { n += 1; if (n == 5) break; } print n;`,
			"55\n5\n",
		},
		{"foreach", "var total = 0; for (x in [1, 2, 3]) total += x; print total;", "6\n"},
		{"foreach_break", "for (x in [1, 2, 3, 4]) { if (x == 3) break; print x; }", "1\n2\n"},
		{"return_from_loop", "fun first(xs) { for (x in xs) { if (x > 1) return x; } return -1; } print first([1, 5, 7]);", "5\n"},
		{
			"classes",
			`class Point { var x = 0; var y = 0; init(x, y) { self.x = x; self.y = y; } sum() { return self.x + self.y; } }
var p = Point(3, 4); print p.sum(); print p; p.x += 10; print p.x;`,
			"7\n<Point instance>\n13\n",
		},
		{
			"field_initializer_sees_self",
			`class Node { var next = null; var me = self; } var n = Node(); print n.me == n; print n.next;`,
			"true\nnull\n",
		},
		{
			"inheritance_and_super",
			`class A { greet() { return "A"; } name() { return "a"; } }
class B < A { greet() { return "B" + super.greet(); } }
var b = B(); print b.greet(); print b.name();`,
			"BA\na\n",
		},
		{
			"inherited_fields_and_init",
			`class Base { var kind = "base"; init(n) { self.n = n; } }
class Derived < Base { var extra = 1; }
var d = Derived(7); print d.kind; print d.extra; print d.n;`,
			"base\n1\n7\n",
		},
		{
			"bound_method",
			`class C { init() { self.v = 42; } get() { return self.v; } } var m = C().get; print m();`,
			"42\n",
		},
		{
			"initializer_returns_self",
			`class C { init() { self.calls = 1; } } var c = C(); print c.init() == c;`,
			"true\n",
		},
		{
			"lists_are_not_shared_between_instances",
			`class Box { var items = [0, 0]; }
var a = Box(); var b = Box(); a.items[0] = 5; print a.items; print b.items;`,
			"[5, 0]\n[0, 0]\n",
		},
		{
			"list_literal_copies",
			`fun mk() { return [1]; } var l1 = mk(); var l2 = mk(); l1[0] = 9; print l1[0]; print l2[0];`,
			"9\n1\n",
		},
		{"index_compound", "var xs = [1, 2]; xs[1] += 10; print xs; print xs[0];", "[1, 12]\n1\n"},
		{"nested_lists", "var m = [[1, 2], [3]]; m[0][1] = 7; print m;", "[[1, 7], [3]]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.input)
			if err != nil {
				t.Fatalf("runtime error: %v", err)
			}
			if out != tt.expected {
				t.Errorf("output mismatch:\n--- expected\n%s\n--- actual\n%s", tt.expected, out)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"print 1 / 0;", "division by zero"},
		{"print 1 % 0;", "division by zero"},
		{"print 1.5 / 0;", "division by zero"},
		{`print -"a";`, "must be a number"},
		{`print "a" + 1;`, "two numbers or two strings"},
		{`print "a" < 1;`, "must be numbers"},
		{"print 1.5 & 1;", "must be integers"},
		{"print 1 << -1;", "negative shift count"},
		{"var xs = [1]; print xs[1];", "out of range"},
		{"var xs = [1]; print xs[-1];", "out of range"},
		{`var xs = [1]; print xs["0"];`, "index must be an integer"},
		{"var n = 3; print n[0];", "only lists can be indexed"},
		{"print undefinedVar;", "undefined variable 'undefinedVar'"},
		{"undefinedVar = 1;", "undefined variable 'undefinedVar'"},
		{"fun f(a) {} f();", "expects 1 arguments but got 0"},
		{"class P { init(a, b) {} } P(1);", "expects 2 arguments but got 1"},
		{"var x = 1; x();", "can only call functions and classes"},
		{"class A {} A().missing;", "undefined property 'missing'"},
		{"var n = 1; n.x = 2;", "only instances have fields"},
		{`extern "puts" as puts(s: [Char]): Int;`, "only available in the compiled backend"},
		{"for (x in 5) print x;", "can only iterate over a list"},
		{"var N = 1; class A < N {}", "superclass must be a class"},
		{"class A {} class B < A { m() { return super.nope(); } } B().m();", "undefined property 'nope'"},
	}
	for _, tt := range tests {
		_, err := run(t, tt.input)
		if err == nil {
			t.Errorf("%q: expected runtime error containing %q", tt.input, tt.want)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: error %q does not mention %q", tt.input, err, tt.want)
		}
		if _, ok := err.(*evaluator.RuntimeError); !ok {
			t.Errorf("%q: error is %T, want *evaluator.RuntimeError", tt.input, err)
		}
	}
}

func TestOutputBeforeErrorIsKept(t *testing.T) {
	out, err := run(t, "print 1; print 2 / 0; print 3;")
	if err == nil {
		t.Fatal("expected division error")
	}
	if out != "1\n" {
		t.Errorf("output = %q, want %q", out, "1\n")
	}
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	in := evaluator.New(evaluator.WithOutput(&out))
	defer in.Shutdown()

	if err := interpret(t, in, "var counter = 1; fun bump() { counter += 1; }"); err != nil {
		t.Fatal(err)
	}
	if err := interpret(t, in, "bump(); bump(); print counter;"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "3\n" {
		t.Errorf("output = %q", out.String())
	}
	v, ok := in.Lookup("counter")
	if !ok || v.Int != 3 {
		t.Errorf("counter = %v", v)
	}
}

func TestGarbageIsReclaimed(t *testing.T) {
	var out bytes.Buffer
	in := evaluator.New(evaluator.WithOutput(&out))
	err := interpret(t, in, `
class Pair { init(a, b) { self.a = a; self.b = b; } }
var keep = Pair(1, 2);
for (var i = 0; i < 200; i += 1) { var tmp = Pair([i, i], keep); }
print keep.a + keep.b;`)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "3\n" {
		t.Fatalf("output = %q", out.String())
	}
	stats := in.Heap().Stats()
	if stats.Freed < 200 {
		t.Errorf("expected garbage from the loop to be freed, stats %+v", stats)
	}
	if stats.Allocated-stats.Freed != stats.Live {
		t.Errorf("counters out of balance: %+v", stats)
	}

	in.Shutdown()
	if live := in.Heap().Stats().Live; live != 0 {
		t.Errorf("live objects after shutdown = %d", live)
	}
}

// reachable collects every value reachable from the globals through list
// elements and instance fields.
func reachable(in *evaluator.Interpreter) []*object.Value {
	var out []*object.Value
	seen := map[*object.Value]bool{}
	var walk func(v *object.Value)
	walk = func(v *object.Value) {
		if v == nil || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
		switch v.Kind {
		case object.LIST_VALUE:
			for _, el := range v.List {
				walk(object.Unwrap(el))
			}
		case object.INSTANCE_VALUE:
			for _, f := range v.Instance.Fields {
				walk(f)
			}
		}
	}
	globals := in.Globals()
	for _, name := range globals.Names() {
		v, _ := globals.Get(name)
		walk(v)
	}
	return out
}

func TestReachableValuesSurvive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"list_rebinds_element", "var a = [1, 2]; var xs = [a, a = 7]; print xs;", "[[1, 2], 7]\n"},
		{"list_rebinds_field", "class K { var f = [1]; } var o = K(); var ys = [o.f, o.f = 3]; print ys;", "[[1], 3]\n"},
		{"call_rebinds_argument", "fun pair(a, b) { return [a, b]; } var p = [4]; var zs = pair(p, p = 5); print zs;", "[[4], 5]\n"},
		{"binary_rebinds_left", `var s = "ab"; var t = s + (s = "cd"); print t;`, "abcd\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			in := evaluator.New(evaluator.WithOutput(&out))
			defer in.Shutdown()
			if err := interpret(t, in, tt.input); err != nil {
				t.Fatal(err)
			}
			if out.String() != tt.want {
				t.Fatalf("output = %q, want %q", out.String(), tt.want)
			}
			for _, v := range reachable(in) {
				if v.Freed() {
					t.Errorf("reachable value %s was freed", v)
				}
			}
			// Another cycle must not free anything still reachable either.
			in.Heap().Collect()
			for _, v := range reachable(in) {
				if v.Freed() {
					t.Errorf("reachable value %s freed by a later cycle", v)
				}
			}
			stats := in.Heap().Stats()
			if stats.Allocated-stats.Freed != stats.Live {
				t.Errorf("counters out of balance: %+v", stats)
			}
		})
	}
}
