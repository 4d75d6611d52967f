package ir

// Version constants for the compiler and its story output.
const (
	// CompilerVersion is the osiris compiler version.
	CompilerVersion = "0.1.0"

	// StoryFormatVersion is the story file format version produced by the
	// emitter (major byte 1, minor byte 13).
	StoryFormatVersion uint32 = 0x010d
)
