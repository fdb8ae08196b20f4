package model

import (
	"bytes"
	"path"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// ManifestFileName is the project manifest file looked up at the project root
const ManifestFileName = "ruku.toml"

// Default values applied by Normalize
const (
	DefaultTagPattern   = "v*"
	DefaultNameTemplate = "{{.Name}}_{{.Tag}}_{{.Target}}"
)

// ArchiveFormat is the packaging format of a release archive
type ArchiveFormat string

const (
	FormatTarGz ArchiveFormat = "tar.gz"
	FormatZip   ArchiveFormat = "zip"
)

// Ext returns the file name extension including the leading dot
func (f ArchiveFormat) Ext() string {
	return "." + string(f)
}

// Manifest is the project configuration loaded from ruku.toml
type Manifest struct {
	Name       string         `toml:"name"`
	TagPattern string         `toml:"tag_pattern"`
	Targets    []string       `toml:"targets"`
	Build      BuildSection   `toml:"build"`
	Archive    ArchiveSection `toml:"archive"`
	Release    ReleaseSection `toml:"release"`
	Deploy     DeploySection  `toml:"deploy"`
	Mirror     MirrorSection  `toml:"mirror"`
	Notify     NotifySection  `toml:"notify"`
}

// BuildSection configures how binaries are produced. When Command is set it
// replaces the default `go build` invocation entirely.
type BuildSection struct {
	Main    string   `toml:"main"`
	LDFlags string   `toml:"ldflags"`
	Env     []string `toml:"env"`
	Command string   `toml:"command"`
	Binary  string   `toml:"binary"`
}

// ArchiveSection configures archive naming and packaging
type ArchiveSection struct {
	NameTemplate string            `toml:"name_template"`
	Formats      map[string]string `toml:"formats"`
	Checksum     *bool             `toml:"checksum"`
	ExtraFiles   []string          `toml:"extra_files"`
}

// ReleaseSection configures the GitHub release created for a tag
type ReleaseSection struct {
	Draft      bool  `toml:"draft"`
	Prerelease *bool `toml:"prerelease"`
}

// DeploySection configures how a released version runs as a container
type DeploySection struct {
	Service    string   `toml:"service"`
	Repository string   `toml:"repository"`
	Port       int      `toml:"port"`
	Env        []string `toml:"env"`
	Volumes    []string `toml:"volumes"`
	Version    string   `toml:"version"`
	PullPolicy string   `toml:"pull_policy"`
}

// MirrorSection toggles mirroring of release archives to object storage.
// Mirroring also requires a storage backend configured on the command line;
// Enabled defaults to true when a backend is present.
type MirrorSection struct {
	Enabled *bool  `toml:"enabled"`
	Prefix  string `toml:"prefix"`
}

// NotifySection toggles Slack notifications for pipeline runs
type NotifySection struct {
	Enabled *bool `toml:"enabled"`
}

// archiveNameData is the data available to the archive name template
type archiveNameData struct {
	Name    string
	Tag     string
	Version string
	OS      string
	Arch    string
	Target  string
}

// DefaultManifest returns the manifest used when no ruku.toml exists
func DefaultManifest(repoName string) *Manifest {
	m := &Manifest{}
	m.Normalize(repoName)
	return m
}

// ParseManifest parses ruku.toml content. Unknown fields are rejected so that
// a typo in a section name fails loudly instead of silently using defaults.
func ParseManifest(data []byte, repoName string) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest")
	}

	m.Normalize(repoName)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Normalize fills in defaults for fields left empty
func (m *Manifest) Normalize(repoName string) {
	if m.Name == "" {
		m.Name = repoName
	}
	if m.TagPattern == "" {
		m.TagPattern = DefaultTagPattern
	}
	if len(m.Targets) == 0 {
		m.Targets = []string{"linux/amd64", "darwin/arm64"}
	}
	if m.Build.Main == "" {
		m.Build.Main = "."
	}
	if m.Archive.NameTemplate == "" {
		m.Archive.NameTemplate = DefaultNameTemplate
	}
	if m.Deploy.Service == "" {
		m.Deploy.Service = m.Name
	}
	if m.Deploy.PullPolicy == "" {
		m.Deploy.PullPolicy = string(PullMissing)
	}
}

// Validate checks the manifest for configuration errors
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return goerr.New("manifest name is empty")
	}
	if _, err := path.Match(m.TagPattern, "v0.0.0"); err != nil {
		return goerr.Wrap(err, "invalid tag pattern", goerr.V("pattern", m.TagPattern))
	}

	seen := map[string]struct{}{}
	for _, s := range m.Targets {
		t, err := ParseTarget(s)
		if err != nil {
			return err
		}
		if _, ok := seen[t.String()]; ok {
			return goerr.New("duplicate target", goerr.V("target", s))
		}
		seen[t.String()] = struct{}{}
	}

	if _, err := template.New("archive").Parse(m.Archive.NameTemplate); err != nil {
		return goerr.Wrap(err, "invalid archive name template", goerr.V("template", m.Archive.NameTemplate))
	}
	for target, format := range m.Archive.Formats {
		if _, err := ParseTarget(target); err != nil {
			return goerr.Wrap(err, "invalid target in archive formats")
		}
		switch ArchiveFormat(format) {
		case FormatTarGz, FormatZip:
		default:
			return goerr.New("unsupported archive format", goerr.V("format", format))
		}
	}

	if m.Deploy.Port != 0 && (m.Deploy.Port < 1 || m.Deploy.Port > 65535) {
		return goerr.New("deploy port out of range", goerr.V("port", m.Deploy.Port))
	}
	switch PullPolicy(m.Deploy.PullPolicy) {
	case PullAlways, PullMissing:
	default:
		return goerr.New("unsupported pull policy", goerr.V("pull_policy", m.Deploy.PullPolicy))
	}

	return nil
}

// MatchesTag reports whether the tag matches the configured tag pattern
func (m *Manifest) MatchesTag(tag string) bool {
	ok, err := path.Match(m.TagPattern, tag)
	return err == nil && ok
}

// ParsedTargets returns the build matrix targets
func (m *Manifest) ParsedTargets() ([]Target, error) {
	targets := make([]Target, 0, len(m.Targets))
	for _, s := range m.Targets {
		t, err := ParseTarget(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// ArchiveFormatFor returns the archive format for a target: an explicit
// override from the formats table, otherwise zip on windows and tar.gz
// elsewhere.
func (m *Manifest) ArchiveFormatFor(t Target) ArchiveFormat {
	if f, ok := m.Archive.Formats[t.String()]; ok {
		return ArchiveFormat(f)
	}
	if t.IsWindows() {
		return FormatZip
	}
	return FormatTarGz
}

// ArchiveName renders the archive file name (including format extension) for
// one target of a run.
func (m *Manifest) ArchiveName(tag string, t Target) (string, error) {
	tmpl, err := template.New("archive").Parse(m.Archive.NameTemplate)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse archive name template")
	}

	var buf bytes.Buffer
	data := archiveNameData{
		Name:    m.Name,
		Tag:     tag,
		Version: VersionFromTag(tag),
		OS:      t.OS,
		Arch:    t.Arch,
		Target:  t.Label(),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render archive name", goerr.V("target", t.String()))
	}

	return buf.String() + m.ArchiveFormatFor(t).Ext(), nil
}

// ChecksumEnabled reports whether a checksums file should be produced.
// Enabled unless turned off explicitly.
func (m *Manifest) ChecksumEnabled() bool {
	return m.Archive.Checksum == nil || *m.Archive.Checksum
}

// ChecksumFileName returns the name of the checksums asset for a tag
func (m *Manifest) ChecksumFileName(tag string) string {
	return m.Name + "_" + tag + "_checksums.txt"
}

// MirrorEnabled reports whether archives should be mirrored to object
// storage. Enabled unless turned off explicitly.
func (m *Manifest) MirrorEnabled() bool {
	return m.Mirror.Enabled == nil || *m.Mirror.Enabled
}

// NotifyEnabled reports whether run results should be posted to Slack.
// Enabled unless turned off explicitly.
func (m *Manifest) NotifyEnabled() bool {
	return m.Notify.Enabled == nil || *m.Notify.Enabled
}

// IsPrerelease reports whether the release for a tag should be marked as a
// prerelease. An explicit setting wins; otherwise tags with a prerelease
// suffix such as v1.2.3-rc1 are detected.
func (m *Manifest) IsPrerelease(tag string) bool {
	if m.Release.Prerelease != nil {
		return *m.Release.Prerelease
	}
	return strings.Contains(VersionFromTag(tag), "-")
}

// VersionFromTag strips the conventional leading "v" from a version tag
func VersionFromTag(tag string) string {
	return strings.TrimPrefix(tag, "v")
}
