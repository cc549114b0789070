package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waskr/waskr/internal/wasm"
)

// buildMinimalModule assembles a module with one type, one function
// (body: i32.const 0; end), and an export named "_start".
func buildMinimalModule() []byte {
	b := []byte{}
	put := func(bs ...byte) { b = append(b, bs...) }

	// header
	put(0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00)

	// type section: one functype () -> (i32)
	put(sectionType, 0x05, 0x01, funcTypeByte, 0x00, 0x01, byte(wasm.ValueTypeI32))

	// function section: one function of type 0
	put(sectionFunction, 0x02, 0x01, 0x00)

	// export section: "_start" -> func 0
	put(sectionExport, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', externKindFunc, 0x00)

	// code section: one body, no locals, i32.const 0; end
	put(sectionCode, 0x06, 0x01, 0x04, 0x00, 0x41, 0x00, 0x0b)

	return b
}

func TestDecodeModule_MinimalModule(t *testing.T) {
	m, err := DecodeModule(buildMinimalModule())
	require.NoError(t, err)

	require.Len(t, m.TypeSection, 1)
	require.Empty(t, m.TypeSection[0].Params)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32}, m.TypeSection[0].Results)

	require.Len(t, m.FunctionSection, 1)
	require.Equal(t, wasm.Index(0), m.FunctionSection[0])

	require.Len(t, m.CodeSection, 1)
	require.Empty(t, m.CodeSection[0].LocalTypes)
	require.Equal(t, []byte{0x41, 0x00, 0x0b}, m.CodeSection[0].Body)

	require.True(t, m.HasStart)
	require.Equal(t, wasm.Index(0), m.StartFunctionIndex)
}

func TestDecodeModule_RejectsBadMagic(t *testing.T) {
	_, err := DecodeModule([]byte{0, 0, 0, 0, 1, 0, 0, 0})
	require.Error(t, err)
}

func TestDecodeModule_RejectsMultiValueResults(t *testing.T) {
	b := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	b = append(b, sectionType, 0x06, 0x01, funcTypeByte, 0x00, 0x02,
		byte(wasm.ValueTypeI32), byte(wasm.ValueTypeI32))
	_, err := DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_DecodesGlobalWithConstInit(t *testing.T) {
	b := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	// global section: one mutable i32 global initialized to 42
	b = append(b, sectionGlobal, 0x06, 0x01, byte(wasm.ValueTypeI32), 0x01, 0x41, 0x2a, 0x0b)
	m, err := DecodeModule(b)
	require.NoError(t, err)

	require.Len(t, m.GlobalSection, 1)
	g := m.GlobalSection[0]
	require.True(t, g.Type.Mutable)
	require.Equal(t, wasm.ConstExprI32, g.Init.Kind)
	require.Equal(t, int32(42), g.Init.I32)
}
