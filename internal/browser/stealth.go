package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/samber/lo"

	"github.com/stupside/showcrawl/internal/app"
)

//go:embed js/stealth_webdriver.js
var stealthWebdriverJS string

//go:embed js/stealth_chrome.js
var stealthChromeJS string

//go:embed js/stealth_plugins.js
var stealthPluginsJS string

//go:embed js/stealth_permissions.js
var stealthPermissionsJS string

//go:embed js/stealth_webgl.js
var stealthWebGLJS string

//go:embed js/stealth_hardware.js
var stealthHardwareJS string

// stealthScript joins the stealth snippets and fills their placeholders from
// the profile.
func stealthScript(p *Profile) string {
	langs, _ := json.Marshal(p.Languages)
	r := strings.NewReplacer(
		"__LANGUAGES__", string(langs),
		"__DEVICE_MEMORY__", fmt.Sprint(p.DeviceMemory),
		"__COLOR_DEPTH__", fmt.Sprint(p.ColorDepth),
		"__WEBGL_VENDOR__", p.WebGLVendor,
		"__WEBGL_RENDERER__", p.WebGLRenderer,
	)
	return r.Replace(strings.Join([]string{
		stealthWebdriverJS,
		stealthChromeJS,
		stealthPluginsJS,
		stealthPermissionsJS,
		stealthWebGLJS,
		stealthHardwareJS,
	}, "\n"))
}

// allocatorOpts returns exec-allocator options that avoid the usual headless
// detection flags.
func allocatorOpts(cfg app.BrowserConfig, p *Profile) []chromedp.ExecAllocatorOption {
	// A false flag value drops the switch entirely.
	var headless any = false
	if cfg.Headless {
		headless = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("mute-audio", true),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),

		chromedp.WindowSize(p.ScreenWidth, p.ScreenHeight),
		chromedp.UserAgent(p.UserAgent),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// injectStealth installs the stealth script ahead of any page script.
func injectStealth(p *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript(p)).Do(ctx)
		return err
	}
}

// injectCDPStealth applies the overrides JS injection cannot reach.
func injectCDPStealth(p *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		steps := []chromedp.Action{
			emulation.SetAutomationOverride(false),
			emulation.SetFocusEmulationEnabled(true),
			emulation.SetHardwareConcurrencyOverride(p.HardwareConcurrency),
			emulation.SetTimezoneOverride(p.TimezoneID),
			emulation.SetLocaleOverride().WithLocale(p.Languages[0]),
		}
		for _, s := range steps {
			if err := s.Do(ctx); err != nil {
				return err
			}
		}

		brand := func(b [2]string, _ int) *emulation.UserAgentBrandVersion {
			return &emulation.UserAgentBrandVersion{Brand: b[0], Version: b[1]}
		}
		ua := emulation.SetUserAgentOverride(p.UserAgent).
			WithAcceptLanguage(p.AcceptLanguage).
			WithPlatform(p.NavigatorPlatform).
			WithUserAgentMetadata(&emulation.UserAgentMetadata{
				Brands:          lo.Map(p.Brands, brand),
				FullVersionList: lo.Map(p.FullVersionList, brand),
				Platform:        p.Platform,
				PlatformVersion: p.PlatformVersion,
				Architecture:    p.Architecture,
				Bitness:         p.Bitness,
			})
		return ua.Do(ctx)
	}
}
