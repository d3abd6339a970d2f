package crawler

import "time"

// Selectors locate the site's UI. Defaults match the kickass-anime layout.
type Selectors struct {
	ListingItem    string `koanf:"listing_item" validate:"required"`
	ListingTitle   string `koanf:"listing_title" validate:"required"`
	ListingEpisode string `koanf:"listing_episode"`
	ListingPoster  string `koanf:"listing_poster"`
	ListingTags    string `koanf:"listing_tags"`

	DetailReady string `koanf:"detail_ready" validate:"required"`
	Synopsis    string `koanf:"synopsis"`
	InfoLabels  string `koanf:"info_labels"`
	Genres      string `koanf:"genres"`
	Artwork     string `koanf:"artwork"`
	ArtworkAttr string `koanf:"artwork_attr"`

	EnterEpisodes     string `koanf:"enter_episodes"`
	EpisodeItem       string `koanf:"episode_item" validate:"required"`
	EpisodeLabel      string `koanf:"episode_label" validate:"required"`
	PaginationControl string `koanf:"pagination_control" validate:"required"`
	PaginationMenu    string `koanf:"pagination_menu" validate:"required"`
	PaginationOption  string `koanf:"pagination_option" validate:"required"`

	VariantControl string `koanf:"variant_control" validate:"required"`
	VariantMenu    string `koanf:"variant_menu" validate:"required"`
	VariantOption  string `koanf:"variant_option" validate:"required"`
	Loading        string `koanf:"loading" validate:"required"`

	Player      string `koanf:"player" validate:"required"`
	PlayerFrame string `koanf:"player_frame" validate:"required"`
}

// DefaultSelectors returns selectors for the kickass-anime markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ListingItem:    "div.latest-update div.show-item",
		ListingTitle:   "h2.show-title a",
		ListingEpisode: "a.v-card",
		ListingPoster:  "div.v-image__image--cover",
		ListingTags:    "span.v-chip__content",

		DetailReady: "div.anime-info-card",
		Synopsis:    "div.anime-info-card div.text-caption",
		InfoLabels:  "div.anime-info-card div.text-subtitle-2 span",
		Genres:      "div.anime-info-card span.v-chip__content",
		Artwork:     "div.anime-info-card div.v-image__image--cover",
		ArtworkAttr: "style",

		EnterEpisodes:     "a.pulse-button",
		EpisodeItem:       "div.episode-item",
		EpisodeLabel:      "div.episode-item span.v-chip__content",
		PaginationControl: "div.episode-list-container div.v-select__slot",
		PaginationMenu:    "div.v-menu__content.menuable__content__active",
		PaginationOption:  "div.v-menu__content.menuable__content__active div.v-list-item__title",

		VariantControl: "div.player-controls div.v-select__slot",
		VariantMenu:    "div.v-menu__content.menuable__content__active",
		VariantOption:  "div.v-menu__content.menuable__content__active div.v-list-item__title",
		Loading:        "div.player-container div.v-progress-circular",

		Player:      "div.player-container",
		PlayerFrame: "div.player-container iframe",
	}
}

// Timing bounds every wait and settle pause.
type Timing struct {
	Navigate     time.Duration `koanf:"navigate" validate:"required"`
	Wait         time.Duration `koanf:"wait" validate:"required"`
	Step         time.Duration `koanf:"step" validate:"required"`
	Probe        time.Duration `koanf:"probe" validate:"required"`
	Player       time.Duration `koanf:"player" validate:"required"`
	ScrollSettle time.Duration `koanf:"scroll_settle"`
	PageSettle   time.Duration `koanf:"page_settle"`
	PollInterval time.Duration `koanf:"poll_interval" validate:"required"`
	MaxScrolls   int           `koanf:"max_scrolls" validate:"required,min=1"`
}

// DefaultTiming mirrors the waits the site needs in practice.
func DefaultTiming() Timing {
	return Timing{
		Navigate:     90 * time.Second,
		Wait:         60 * time.Second,
		Step:         10 * time.Second,
		Probe:        3 * time.Second,
		Player:       30 * time.Second,
		ScrollSettle: 3 * time.Second,
		PageSettle:   time.Second,
		PollInterval: 250 * time.Millisecond,
		MaxScrolls:   200,
	}
}

// Options configures a Crawler.
type Options struct {
	BaseURL         string
	CatalogURL      string
	BatchLimit      int
	Selectors       Selectors
	Timing          Timing
	VariantKeywords []string
	AdPatterns      []string
	PlayingMarker   string
}

// DefaultVariantKeywords identify the language/track dropdown.
var DefaultVariantKeywords = []string{"sub", "dub", "language", "audio", "raw"}

// DefaultAdPatterns match frames that never carry the video.
var DefaultAdPatterns = []string{
	`disqus\.com`,
	`doubleclick\.net`,
	`googlesyndication\.com`,
	`/ads?/`,
	`comments?`,
	`^about:`,
}
