// Package ir models the QBE intermediate representation numerus emits.
//
// The types here are plain data. The compiler builds a Program; Format turns
// it into the text QBE reads. ir imports nothing internal so every other
// package can depend on it.
//
// Conventions:
//   - every numeric value is a double (d); only main returns a word (w)
//   - temporaries are %_1, %_2, ... numbered per function
//   - parameters and bindings are versioned locals, %x_0, %x_1, ...
//   - identity hashes are domain-separated SHA-256 over canonical JSON
package ir
