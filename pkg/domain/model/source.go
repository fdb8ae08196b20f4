package model

// SourceCheckout represents an extracted source snapshot for one commit
type SourceCheckout struct {
	TempDir string // Temporary directory owning the extracted tree
	Root    string // Project root inside TempDir (zipballs nest one directory)
	Files   int    // Number of extracted files
	Size    int64  // Total uncompressed size in bytes
}
