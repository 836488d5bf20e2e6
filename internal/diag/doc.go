// Package diag turns what the engine reports into errors a caller can act on.
//
// # Data model
//
//   - Code – the engine's condition (-1..-9) or FASMERR value (-101..-141),
//     or one of the local codes for failures that never reach the engine.
//   - Kind – closed classification of codes: IllegalInstruction,
//     UnknownSymbol, SyntaxError, FileNotFound, OutOfMemory,
//     AssemblerInternal, IndexOutOfRange. Each kind has a sentinel error.
//   - Failure – the single error value returned for a failed call. It keeps
//     the failing line and column relative to the caller's text and the
//     caller's text itself.
//   - Diagnostic / Bag – render-friendly records used by batch builds and by
//     internal/diagfmt.
//
// Line numbers are absolute over the caller's flattened text, the way fasm
// counts them. Synthetic prelude lines are subtracted. For multi-file input
// Failure.Origin and Failure.LocalLine also name the file and its own line.
//
// Package diag does no formatting or IO; rendering lives in internal/diagfmt.
package diag
