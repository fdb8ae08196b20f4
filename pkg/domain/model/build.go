package model

// BuildInput is the input for building one target of the matrix
type BuildInput struct {
	Dir     string   // Project root
	Main    string   // Main package path relative to Dir
	Target  Target   // GOOS/GOARCH pair
	Tag     string   // Release tag, e.g. v1.2.3
	Version string   // Tag without the leading v
	Commit  string   // Commit SHA being released
	LDFlags string   // -ldflags value, {{.Version}} and {{.Commit}} expanded
	Env     []string // Extra environment in KEY=VALUE form
	Command string   // Optional command replacing `go build`
	Binary  string   // Output path template used with Command
	OutDir  string   // Directory to place the binary in
	Name    string   // Binary base name
}
