package banner

import (
	"fmt"
	"math"
	"strings"

	"eucookie/internal/settings"
	dErrors "eucookie/pkg/domain-errors"
)

// Option keys understood by the banner.
const (
	KeyPopupEnabled       = "popup_enabled"
	KeyPopupInfo          = "popup_info"
	KeyAgreeButton        = "popup_agree_button_message"
	KeyDisagreeButton     = "popup_disagree_button_message"
	KeyCookieName         = "cookie_name"
	KeyCookieLifetimeDays = "cookie_lifetime"
	KeyDomain             = "domain"
)

const (
	DefaultCookieName         = "cookie-agreed"
	DefaultCookieLifetimeDays = 100
	DefaultAgreeButton        = "OK, I agree"
	DefaultDisagreeButton     = "No, give me more info"
	maxCookieLifetimeDays     = 3650
)

// Settings is the banner configuration in effect after Init.
type Settings struct {
	PopupEnabled          bool   `json:"popup_enabled"`
	PopupInfo             string `json:"popup_info,omitempty"`
	AgreeButtonMessage    string `json:"popup_agree_button_message"`
	DisagreeButtonMessage string `json:"popup_disagree_button_message"`
	CookieName            string `json:"cookie_name"`
	CookieLifetimeDays    int    `json:"cookie_lifetime"`
	Domain                string `json:"domain,omitempty"`
}

// Defaults returns the settings used for keys the site leaves unset.
func Defaults() Settings {
	return Settings{
		PopupEnabled:          true,
		AgreeButtonMessage:    DefaultAgreeButton,
		DisagreeButtonMessage: DefaultDisagreeButton,
		CookieName:            DefaultCookieName,
		CookieLifetimeDays:    DefaultCookieLifetimeDays,
	}
}

// Decode reads banner settings from opts. Unknown keys are ignored; known keys
// with the wrong type are invalid input. nil opts yields Defaults.
func Decode(opts *settings.Options) (Settings, error) {
	out := Defaults()
	if opts == nil {
		return out, nil
	}

	var err error
	if out.PopupEnabled, err = boolValue(opts, KeyPopupEnabled, out.PopupEnabled); err != nil {
		return Settings{}, err
	}
	if out.PopupInfo, err = stringValue(opts, KeyPopupInfo, out.PopupInfo); err != nil {
		return Settings{}, err
	}
	if out.AgreeButtonMessage, err = stringValue(opts, KeyAgreeButton, out.AgreeButtonMessage); err != nil {
		return Settings{}, err
	}
	if out.DisagreeButtonMessage, err = stringValue(opts, KeyDisagreeButton, out.DisagreeButtonMessage); err != nil {
		return Settings{}, err
	}
	if out.CookieName, err = stringValue(opts, KeyCookieName, out.CookieName); err != nil {
		return Settings{}, err
	}
	if out.Domain, err = stringValue(opts, KeyDomain, out.Domain); err != nil {
		return Settings{}, err
	}
	if out.CookieLifetimeDays, err = intValue(opts, KeyCookieLifetimeDays, out.CookieLifetimeDays); err != nil {
		return Settings{}, err
	}

	if strings.TrimSpace(out.CookieName) == "" || strings.ContainsAny(out.CookieName, " ;,=") {
		return Settings{}, dErrors.New(dErrors.CodeInvalidInput, "cookie_name must be a non-empty cookie token")
	}
	if out.CookieLifetimeDays < 1 || out.CookieLifetimeDays > maxCookieLifetimeDays {
		return Settings{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("cookie_lifetime must be between 1 and %d days", maxCookieLifetimeDays))
	}
	return out, nil
}

func boolValue(opts *settings.Options, key string, fallback bool) (bool, error) {
	raw, ok := opts.Lookup(key)
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int:
		// checkbox settings are stored as 0/1
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return false, typeError(key, "a boolean")
}

func stringValue(opts *settings.Options, key, fallback string) (string, error) {
	raw, ok := opts.Lookup(key)
	if !ok || raw == nil {
		return fallback, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", typeError(key, "a string")
	}
	return v, nil
}

func intValue(opts *settings.Options, key string, fallback int) (int, error) {
	raw, ok := opts.Lookup(key)
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt32 {
			return int(v), nil
		}
	}
	return 0, typeError(key, "a whole number")
}

func typeError(key, want string) error {
	return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s must be %s", key, want))
}
