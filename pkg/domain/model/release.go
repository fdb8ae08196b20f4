package model

// Release represents a GitHub release
type Release struct {
	ID         int64
	TagName    string
	Name       string
	URL        string
	Draft      bool
	Prerelease bool
}

// ReleaseParams are the inputs for creating a GitHub release
type ReleaseParams struct {
	TagName    string
	Name       string
	Body       string
	Commitish  string
	Draft      bool
	Prerelease bool
}

// Asset represents an uploaded release asset
type Asset struct {
	ID   int64
	Name string
	Size int64
	URL  string
}

// ReleaseRequest describes one requested pipeline run. Dir points at a local
// checkout; when empty the tagged source is fetched from GitHub.
type ReleaseRequest struct {
	Owner  string
	Repo   string
	Tag    string
	Commit string
	Dir    string
}
