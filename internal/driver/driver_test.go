package driver

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// compile runs the whole pipeline over src and returns the assembly text.
func compile(t *testing.T, src string) string {
	t.Helper()
	result, err := Compile("test.stm", src, Options{DiagSink: io.Discard})
	require.NoError(t, err)
	return string(result.Assembly)
}

func TestReturnZero(t *testing.T) {
	asm := compile(t, `
fn main() -> s64 {
	ret 0;
}
`)

	require.Contains(t, asm, "\t.text\n")
	require.Contains(t, asm, "\t.global\tmain\n")
	require.Contains(t, asm, "\t.type\tmain,@function\n")
	require.Contains(t, asm, "main:\n")
	require.Contains(t, asm, "\t.cfi_startproc\n")
	require.Contains(t, asm, "\tmovq\t$0, %rax\n")
	require.Contains(t, asm, "\tretq\n")
	require.Contains(t, asm, "\t.cfi_endproc\n")
	require.Contains(t, asm, "\t.size\tmain, .LFE0-main\n")
}

func TestGlobalVariable(t *testing.T) {
	asm := compile(t, `
let x: s32 = 42;

fn main() -> s64 {
	ret 0;
}
`)

	require.Contains(t, asm, "\t.section\t.rodata\n")
	require.Contains(t, asm, "\t.align\t4\n")
	require.Contains(t, asm, "\t.type\tx,@object\n")
	require.Contains(t, asm, "\t.size\tx,4\n")
	require.Contains(t, asm, "x:\n\t.long 42\n")
}

func TestOperatorPrecedence(t *testing.T) {
	asm := compile(t, `
fn f(a: s32, b: s32, c: s32) -> s32 {
	ret a + b * c;
}

fn main() -> s64 {
	ret f(1, 2, 3) as s64;
}
`)

	imul := strings.Index(asm, "\timull\t")
	add := strings.Index(asm, "\taddl\t")
	require.Greater(t, imul, -1, "expected an imull")
	require.Greater(t, add, -1, "expected an addl")
	require.Less(t, imul, add, "the multiply must happen before the add")
}

func TestPointerCondition(t *testing.T) {
	asm := compile(t, `
fn choose(p: *s32) -> s64 {
	if p {
		ret 1;
	} else {
		ret 2;
	}
}

fn main() -> s64 {
	ret 0;
}
`)

	require.Contains(t, asm, "\tcmpq\t")
	require.Contains(t, asm, "\tjne\t.LBB0_")
	require.Contains(t, asm, "\tjmp\t.LBB0_")
}

func TestWhileLoop(t *testing.T) {
	asm := compile(t, `
fn count() -> s64 {
	let mut x: s32 = 0;
	while x < 10 {
		x = x + 1;
	}
	ret x as s64;
}

fn main() -> s64 {
	ret count();
}
`)

	// The comparison puts the immediate on the left and keeps the
	// condition unflipped.
	require.Contains(t, asm, "\tcmpl\t$10, ")
	require.Contains(t, asm, "\tjl\t.LBB0_")
	// The loop body jumps back to the condition label.
	require.Contains(t, asm, "\tjmp\t.LBB0_1\n")
	require.Contains(t, asm, ".LBB0_1:\n")
}

func TestInlineAsm(t *testing.T) {
	asm := compile(t, `
fn main() -> s64 {
	let mut x: s32 = 7;
	asm("mov $1, #0\nmov $0, %eax\n", "r")(x);
	ret 0;
}
`)

	// The second template line is width-refined from its register operand.
	require.Contains(t, asm, "\tmovl\t$0, %eax\n")
	// The first line references the stack slot of x.
	require.Contains(t, asm, "\tmov\t$1, -4(%rbp)\n")
}

func TestCallerSavedAroundCall(t *testing.T) {
	asm := compile(t, `
fn g() -> s64 {
	ret 1;
}

fn main() -> s64 {
	let i: s64 = 5;
	ret i + g();
}
`)

	call := strings.Index(asm, "\tcallq\tg@PLT\n")
	require.Greater(t, call, -1, "expected a PLT call")

	// The value of i lives across the call in a caller-saved register.
	push := strings.LastIndex(asm[:call], "\tpushq\t%rcx\n")
	require.Greater(t, push, -1, "expected a caller-save push before the call")
	pop := strings.Index(asm[call:], "\tpopq\t%rcx\n")
	require.Greater(t, pop, -1, "expected a caller-save pop after the call")
}

func TestErrorsSuppressOutput(t *testing.T) {
	_, err := Compile("test.stm", `
fn main() -> s64 {
	ret too(1, 2, 3, 4, 5, 6, 7);
}

fn too(a: s64, b: s64, c: s64, d: s64, e: s64, f: s64, g: s64) -> s64 {
	ret a;
}
`, Options{DiagSink: io.Discard})
	require.Error(t, err)
	require.Contains(t, err.Error(), "error")
}

func TestEmitIR(t *testing.T) {
	result, err := Compile("test.stm", `
fn main() -> s64 {
	ret 0;
}
`, Options{EmitIR: true, DiagSink: io.Discard})
	require.NoError(t, err)
	require.Contains(t, result.IR, "fn @main")
	require.Contains(t, result.IR, "ret 0")
}

func TestFatalDiagnosticBecomesError(t *testing.T) {
	_, err := Compile("test.stm", `
fn main() -> s64 {
	ret undeclared;
}
`, Options{DiagSink: io.Discard})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unresolved identifier")
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig("does-not-exist.yaml")
	require.NoError(t, err)
	require.Empty(t, cfg.Inputs)
}
