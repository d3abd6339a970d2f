// Package catalog defines the persisted data model: shows, their episodes and
// the playback sources resolved for each language variant.
package catalog

import (
	"cmp"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	// Unknown marks a metadata field that could not be extracted.
	Unknown = "Unknown"
	// DefaultVariant is the implicit variant of a show without a variant control.
	DefaultVariant = "Default"
)

// Metadata is the descriptive block fetched once from a show's detail page.
type Metadata struct {
	Artwork     string   `json:"artwork" yaml:"artwork"`
	Synopsis    string   `json:"synopsis" yaml:"synopsis"`
	Type        string   `json:"type" yaml:"type"`
	ReleaseYear string   `json:"release_year" yaml:"release_year"`
	Genres      []string `json:"genres" yaml:"genres"`
}

// NewMetadata returns a block with every field set to Unknown.
func NewMetadata() Metadata {
	return Metadata{
		Artwork:     Unknown,
		Synopsis:    Unknown,
		Type:        Unknown,
		ReleaseYear: Unknown,
		Genres:      []string{},
	}
}

// Source is the playback reference resolved for one variant of an episode.
type Source struct {
	Variant   string `json:"variant_label" yaml:"variant_label"`
	Reference string `json:"playback_reference" yaml:"playback_reference"`
}

// Episode is one numbered installment of an Item.
type Episode struct {
	Label   string   `json:"episode_label" yaml:"episode_label"`
	URL     string   `json:"url,omitempty" yaml:"url,omitempty"`
	Sources []Source `json:"sources" yaml:"sources"`
}

// Index returns the numeric index derived from the episode label.
func (e Episode) Index() (int, bool) {
	return EpisodeIndex(e.Label)
}

// AddSource appends src unless a source with the same variant label exists.
// It reports whether the source was added.
func (e *Episode) AddSource(src Source) bool {
	if slices.ContainsFunc(e.Sources, func(s Source) bool { return s.Variant == src.Variant }) {
		return false
	}
	e.Sources = append(e.Sources, src)
	return true
}

// Item is one show of the catalog. Identity is the merge key.
type Item struct {
	Identity       string    `json:"identity" yaml:"identity"`
	Title          string    `json:"title" yaml:"title"`
	DetailURL      string    `json:"detail_url" yaml:"detail_url"`
	EpisodeListURL string    `json:"episode_list_url" yaml:"episode_list_url"`
	Tags           []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metadata       Metadata  `json:"metadata" yaml:"metadata"`
	Episodes       []Episode `json:"episodes" yaml:"episodes"`
}

// Indexes returns the set of episode indexes already present on the item.
func (it Item) Indexes() map[int]struct{} {
	set := make(map[int]struct{}, len(it.Episodes))
	for _, ep := range it.Episodes {
		if idx, ok := ep.Index(); ok {
			set[idx] = struct{}{}
		}
	}
	return set
}

// trailingNumber matches the last run of digits in a label.
var trailingNumber = regexp.MustCompile(`(\d+)\D*$`)

// EpisodeIndex extracts the trailing integer token of an episode label, so
// "Episode 5" and "Ep. 05" both resolve to 5.
func EpisodeIndex(label string) (int, bool) {
	m := trailingNumber.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SortEpisodes orders episodes by derived index ascending. Labels without an
// index sort last, in their original order.
func SortEpisodes(eps []Episode) {
	slices.SortStableFunc(eps, func(a, b Episode) int {
		ai, aok := a.Index()
		bi, bok := b.Index()
		switch {
		case aok && bok:
			return cmp.Compare(ai, bi)
		case aok:
			return -1
		case bok:
			return 1
		}
		return 0
	})
}

// Canonical resolves href against base and normalizes it into a stable
// identity: absolute, without query, fragment or trailing slash.
func Canonical(base, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if !ref.IsAbs() {
		b, err := url.Parse(base)
		if err != nil {
			return "", err
		}
		ref = b.ResolveReference(ref)
	}
	ref.RawQuery = ""
	ref.Fragment = ""
	ref.Host = strings.ToLower(ref.Host)
	if ref.Path != "/" {
		ref.Path = strings.TrimSuffix(ref.Path, "/")
	}
	return ref.String(), nil
}

// Resolve makes href absolute against base without any other normalization.
func Resolve(base, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
