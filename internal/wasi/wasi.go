// Package wasi holds the one piece of the WASI preview1 ABI this compiler
// needs: a table of recognized host function signatures, used to validate
// that a module's wasi_snapshot_preview1 imports are ones the runtime can
// actually satisfy (spec.md §4.1). waskr never emits a host-call body for
// these — that lives in the external runtime, spec.md §1 — it only checks
// the shape a module declares against the shape the ABI actually has.
package wasi

import (
	"fmt"

	"github.com/waskr/waskr/internal/wasm"
)

// ModuleName is the import module name waskr recognizes and validates
// signatures for; any other imported function module is accepted without a
// signature check (spec.md §4.1 only special-cases WASI).
const ModuleName = "wasi_snapshot_preview1"

var (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64

	errno = []wasm.ValueType{i32} // every WASI call but proc_exit returns an Errno
)

func params(ts ...wasm.ValueType) []wasm.ValueType { return ts }

// Signatures is the canonical wasm32 ABI for every wasi_snapshot_preview1
// function, grounded on tetratelabs/wazero's
// imports/wasi_snapshot_preview1/{args,clock,fs,proc,sched,poll,sock}.go
// host function table (names and parameter order; waskr uses the raw
// pointer-argument ABI those files document rather than wazero's in-process
// Go call signatures, since this table validates what a *module* declares,
// not how a Go host implements it).
var Signatures = map[string]wasm.FunctionType{
	"args_get":             {Params: params(i32, i32), Results: errno},
	"args_sizes_get":       {Params: params(i32, i32), Results: errno},
	"environ_get":          {Params: params(i32, i32), Results: errno},
	"environ_sizes_get":    {Params: params(i32, i32), Results: errno},
	"clock_res_get":        {Params: params(i32, i32), Results: errno},
	"clock_time_get":       {Params: params(i32, i64, i32), Results: errno},

	"fd_advise":             {Params: params(i32, i64, i64, i32), Results: errno},
	"fd_allocate":           {Params: params(i32, i64, i64), Results: errno},
	"fd_close":              {Params: params(i32), Results: errno},
	"fd_datasync":           {Params: params(i32), Results: errno},
	"fd_fdstat_get":         {Params: params(i32, i32), Results: errno},
	"fd_fdstat_set_flags":   {Params: params(i32, i32), Results: errno},
	"fd_fdstat_set_rights":  {Params: params(i32, i64, i64), Results: errno},
	"fd_filestat_get":       {Params: params(i32, i32), Results: errno},
	"fd_filestat_set_size":  {Params: params(i32, i64), Results: errno},
	"fd_filestat_set_times": {Params: params(i32, i64, i64, i32), Results: errno},
	"fd_pread":              {Params: params(i32, i32, i32, i64, i32), Results: errno},
	"fd_prestat_get":        {Params: params(i32, i32), Results: errno},
	"fd_prestat_dir_name":   {Params: params(i32, i32, i32), Results: errno},
	"fd_pwrite":             {Params: params(i32, i32, i32, i64, i32), Results: errno},
	"fd_read":               {Params: params(i32, i32, i32, i32), Results: errno},
	"fd_readdir":            {Params: params(i32, i32, i32, i64, i32), Results: errno},
	"fd_renumber":           {Params: params(i32, i32), Results: errno},
	"fd_seek":               {Params: params(i32, i64, i32, i32), Results: errno},
	"fd_sync":               {Params: params(i32), Results: errno},
	"fd_tell":               {Params: params(i32, i32), Results: errno},
	"fd_write":              {Params: params(i32, i32, i32, i32), Results: errno},

	"path_create_directory":   {Params: params(i32, i32, i32), Results: errno},
	"path_filestat_get":       {Params: params(i32, i32, i32, i32, i32), Results: errno},
	"path_filestat_set_times": {Params: params(i32, i32, i32, i32, i64, i64, i32), Results: errno},
	"path_link":               {Params: params(i32, i32, i32, i32, i32, i32, i32), Results: errno},
	"path_open":               {Params: params(i32, i32, i32, i32, i32, i64, i64, i32, i32), Results: errno},
	"path_readlink":           {Params: params(i32, i32, i32, i32, i32, i32), Results: errno},
	"path_remove_directory":   {Params: params(i32, i32, i32), Results: errno},
	"path_rename":             {Params: params(i32, i32, i32, i32, i32, i32), Results: errno},
	"path_symlink":            {Params: params(i32, i32, i32, i32, i32), Results: errno},
	"path_unlink_file":        {Params: params(i32, i32, i32), Results: errno},

	"poll_oneoff":   {Params: params(i32, i32, i32, i32), Results: errno},
	"proc_exit":     {Params: params(i32)}, // noreturn: no result, not even Errno
	"proc_raise":    {Params: params(i32), Results: errno},
	"sched_yield":   {Results: errno},
	"random_get":    {Params: params(i32, i32), Results: errno},

	"sock_accept":   {Params: params(i32, i32, i32), Results: errno},
	"sock_recv":     {Params: params(i32, i32, i32, i32, i32, i32), Results: errno},
	"sock_send":     {Params: params(i32, i32, i32, i32, i32), Results: errno},
	"sock_shutdown": {Params: params(i32, i32), Results: errno},
}

// Validate checks name's declared signature ft against the WASI ABI table.
// An unrecognized function name, or a known name imported with a mismatched
// signature, is rejected: a host import the runtime cannot actually back is
// a compile-time error here rather than a trap deferred to link/run time
// (spec.md §4.1).
func Validate(name string, ft *wasm.FunctionType) error {
	want, ok := Signatures[name]
	if !ok {
		return fmt.Errorf("unsupported %s import %q", ModuleName, name)
	}
	if !sameTypes(want.Params, ft.Params) || !sameTypes(want.Results, ft.Results) {
		return fmt.Errorf("%s import %q: signature %s does not match the WASI ABI %s",
			ModuleName, name, describe(ft), describe(&want))
	}
	return nil
}

func sameTypes(a, b []wasm.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func describe(ft *wasm.FunctionType) string {
	s := "("
	for i, p := range ft.Params {
		if i > 0 {
			s += ", "
		}
		s += wasm.ValueTypeName(p)
	}
	s += ") -> ("
	for i, r := range ft.Results {
		if i > 0 {
			s += ", "
		}
		s += wasm.ValueTypeName(r)
	}
	return s + ")"
}
