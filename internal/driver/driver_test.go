package driver_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neksis/internal/driver"
	"neksis/vm"
)

// runSource drives source through the full lex -> parse -> analyze ->
// compile -> run pipeline and returns whatever stdout the VM produced.
func runSource(t *testing.T, source string) (stdout string, exitCode int, runErr error) {
	t.Helper()

	pipeline, err := driver.Compile(source)
	require.NoError(t, err, "compile should succeed")

	var buf bytes.Buffer
	machine := vm.New()
	machine.SetStdout(&buf)

	exitCode, runErr = machine.Run(pipeline.Bytecode)
	return buf.String(), exitCode, runErr
}

// Scenario A — hello world.
func TestEndToEndHelloWorld(t *testing.T) {
	source := `fn main() -> Int { println("Hello, World!"); return 0; }`

	stdout, exitCode, err := runSource(t, source)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!\n", stdout)
	assert.Equal(t, 0, exitCode)
}

// Scenario B — arithmetic and print.
func TestEndToEndArithmeticAndPrint(t *testing.T) {
	source := `fn main() -> Int { let a: Int = 10; let b: Int = 5; println("sum=" + (a + b)); return 0; }`

	stdout, exitCode, err := runSource(t, source)
	require.NoError(t, err)
	assert.Equal(t, "sum=15\n", stdout)
	assert.Equal(t, 0, exitCode)
}

// Scenario C — recursion.
func TestEndToEndRecursiveFactorial(t *testing.T) {
	source := `fn fact(n: Int) -> Int { if n <= 1 { return 1; } return n * fact(n - 1); } fn main() -> Int { println("" + fact(10)); return 0; }`

	stdout, exitCode, err := runSource(t, source)
	require.NoError(t, err)
	assert.Equal(t, "3628800\n", stdout)
	assert.Equal(t, 0, exitCode)
}

// Scenario D — loop and accumulation.
func TestEndToEndLoopAccumulation(t *testing.T) {
	source := `fn main() -> Int { let mut i: Int = 1; let mut s: Int = 0; while i <= 100 { s = s + i; i = i + 1; } println("" + s); return 0; }`

	stdout, exitCode, err := runSource(t, source)
	require.NoError(t, err)
	assert.Equal(t, "5050\n", stdout)
	assert.Equal(t, 0, exitCode)
}

// Scenario E — type error: rejected at analysis, never reaches the VM.
func TestEndToEndTypeErrorIsRejected(t *testing.T) {
	source := `fn main() -> Int { let x: Int = "abc"; return 0; }`

	pipeline, err := driver.Compile(source)
	require.Error(t, err)

	diags := driver.Diagnostics(err)
	require.NotEmpty(t, diags)
	found := false
	for _, d := range diags {
		if strings.Contains(d.Error(), "type mismatch") {
			found = true
		}
	}
	assert.True(t, found, "expected a type-mismatch diagnostic, got %v", diags)

	// No bytecode was produced, so there is nothing for a VM to run.
	assert.Empty(t, pipeline.Bytecode.Functions)
}

// Scenario F — runtime fault: passes analysis, faults in the VM.
func TestEndToEndDivisionByZeroFaults(t *testing.T) {
	source := `fn main() -> Int { let a: Int = 1; let b: Int = 0; println("" + (a / b)); return 0; }`

	pipeline, err := driver.Compile(source)
	require.NoError(t, err)

	machine := vm.New()
	var buf bytes.Buffer
	machine.SetStdout(&buf)

	exitCode, runErr := machine.Run(pipeline.Bytecode)
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "division by zero")
	assert.NotEqual(t, 0, exitCode)
}
