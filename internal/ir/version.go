package ir

// Version constants recorded with every build.
const (
	// IRVersion changes whenever Format output changes for the same program.
	IRVersion = "1"

	// CompilerVersion is the numerus compiler version.
	CompilerVersion = "0.1.0"
)
