// Package gciso reads, edits, and rebuilds GameCube optical disc images.
//
// An image is opened into a ByteStream (memory-mapped or in-memory), and an
// Engine parses its system region (disc header, header information,
// apploader, DOL) and file-system table into typed records. Files can then
// be extracted, replaced, added, and deleted; Build serializes everything
// back into a byte-exact image, relocating file data only when a
// replacement grew. MakePatch/ApplyPatch carry the same edits as a zipped
// bundle of binary deltas against the pristine image.
//
// The engine is synchronous and not re-entrant under mutation: drive
// concurrent extraction from separate ByteStream views, never through one
// engine from multiple goroutines.
package gciso
