package configstore

import "github.com/ivikasavnish/go-replay/pkg/replay"

// Sample returns a small demonstration configuration, useful for seeding a
// fresh configuration directory.
func Sample() *replay.Configuration {
	return &replay.Configuration{
		Name:        "sample-login",
		Description: "Navigate to a login form, fill it in and submit",
		Actions: []replay.Action{
			{
				Name:  "open login page",
				Type:  replay.ActionNavigate,
				Value: "https://example.com/login",
			},
			{
				Name:    "enter username",
				Type:    replay.ActionInput,
				Locator: replay.Locator{Kind: replay.LocatorID, Value: "username"},
				Value:   "demo",
			},
			{
				Name:    "enter password",
				Type:    replay.ActionInput,
				Locator: replay.Locator{Kind: replay.LocatorID, Value: "password"},
				Value:   "secret",
			},
			{
				Name:    "submit",
				Type:    replay.ActionClick,
				Locator: replay.Locator{Kind: replay.LocatorCSS, Value: "button[type=submit]"},
			},
			{
				Name:  "wait for redirect",
				Type:  replay.ActionWait,
				Value: "2000",
			},
			{
				Name:    "verify dashboard",
				Type:    replay.ActionAssert,
				Locator: replay.Locator{Kind: replay.LocatorCSS, Value: ".dashboard"},
			},
		},
	}
}
