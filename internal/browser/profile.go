package browser

import (
	"fmt"
	"math/rand/v2"
)

// Profile is one coherent browser identity: the user agent, Client Hints,
// locale, screen and WebGL values all describe the same machine.
type Profile struct {
	UserAgent           string
	Brands              [][2]string // [brand, major]
	FullVersionList     [][2]string // [brand, full version]
	Platform            string
	PlatformVersion     string
	Architecture        string
	Bitness             string
	NavigatorPlatform   string
	AcceptLanguage      string
	Languages           []string
	TimezoneID          string
	HardwareConcurrency int64
	DeviceMemory        int
	ScreenWidth         int
	ScreenHeight        int
	ColorDepth          int
	WebGLVendor         string
	WebGLRenderer       string
}

type machine struct {
	uaOS              string
	navigatorPlatform string
	platform          string
	platformVersion   string
	architecture      string
	gpus              [][2]string // [vendor, renderer]
}

var machines = []machine{
	{
		uaOS:              "Windows NT 10.0; Win64; x64",
		navigatorPlatform: "Win32",
		platform:          "Windows",
		platformVersion:   "15.0.0",
		architecture:      "x86",
		gpus: [][2]string{
			{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		},
	},
	{
		uaOS:              "Macintosh; Intel Mac OS X 10_15_7",
		navigatorPlatform: "MacIntel",
		platform:          "macOS",
		platformVersion:   "14.5.0",
		architecture:      "arm",
		gpus: [][2]string{
			{"Google Inc. (Apple)", "ANGLE (Apple, Apple M1, OpenGL 4.1)"},
		},
	},
}

var locales = []struct {
	timezone string
	header   string
	langs    []string
}{
	{"America/New_York", "en-US,en;q=0.9", []string{"en-US", "en"}},
	{"America/Los_Angeles", "en-US,en;q=0.9", []string{"en-US", "en"}},
	{"Europe/London", "en-GB,en;q=0.9,en-US;q=0.8", []string{"en-GB", "en", "en-US"}},
}

var (
	screens      = [][2]int{{1920, 1080}, {2560, 1440}, {1536, 864}}
	chromeMajors = []int{131, 132, 133}
	cores        = []int64{4, 8, 12}
	memories     = []int{4, 8, 16}
	greaseBrands = []string{`Not A(Brand`, `Not/A)Brand`, `Not_A Brand`}
)

func pick[T any](r *rand.Rand, from []T) T {
	return from[r.IntN(len(from))]
}

// NewProfile draws a random profile from r, or from a freshly seeded source
// when r is nil.
func NewProfile(r *rand.Rand) *Profile {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m := pick(r, machines)
	gpu := pick(r, m.gpus)
	loc := pick(r, locales)
	scr := pick(r, screens)
	major := pick(r, chromeMajors)
	grease := pick(r, greaseBrands)
	full := fmt.Sprintf("%d.0.0.0", major)

	return &Profile{
		UserAgent: fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
			m.uaOS, full,
		),
		Brands: [][2]string{
			{grease, "8"},
			{"Chromium", fmt.Sprint(major)},
			{"Google Chrome", fmt.Sprint(major)},
		},
		FullVersionList: [][2]string{
			{grease, "8.0.0.0"},
			{"Chromium", full},
			{"Google Chrome", full},
		},
		Platform:            m.platform,
		PlatformVersion:     m.platformVersion,
		Architecture:        m.architecture,
		Bitness:             "64",
		NavigatorPlatform:   m.navigatorPlatform,
		AcceptLanguage:      loc.header,
		Languages:           loc.langs,
		TimezoneID:          loc.timezone,
		HardwareConcurrency: pick(r, cores),
		DeviceMemory:        pick(r, memories),
		ScreenWidth:         scr[0],
		ScreenHeight:        scr[1],
		ColorDepth:          24,
		WebGLVendor:         gpu[0],
		WebGLRenderer:       gpu[1],
	}
}
