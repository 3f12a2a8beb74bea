package cache

import "github.com/matzehuels/flametower/pkg/flame"

// Keyer builds cache keys.
type Keyer interface {
	// SourceKey identifies a fetched remote document.
	SourceKey(url string) string
	// LayoutKey identifies the layout of an interval collection.
	LayoutKey(docHash string, opts LayoutKeyOpts) string
	// ArtifactKey identifies one rendered output of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the inputs besides the intervals that change a layout.
type LayoutKeyOpts struct {
	ColorMode flame.ColorMode `json:"color_mode"`
	Palette   flame.Palette   `json:"palette"`
	Unit      string          `json:"unit,omitempty"`
}

// ArtifactKeyOpts are the inputs besides the layout that change an artifact.
type ArtifactKeyOpts struct {
	Format    string  `json:"format"`
	Width     float64 `json:"width,omitempty"`
	RowHeight float64 `json:"row_height,omitempty"`
	Title     string  `json:"title,omitempty"`
	Inverted  bool    `json:"inverted,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SourceKey(url string) string {
	return hashKey("source", url)
}

func (DefaultKeyer) LayoutKey(docHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", docHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
