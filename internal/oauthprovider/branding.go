package oauthprovider

import (
	"fmt"
	"html"
	"sync/atomic"
)

// Branding customizes the loopback callback page's appearance: the page
// itself stays a bare, functional fallback (see writeCallbackPage), but an
// operator embedding supermcp under their own product name still wants
// their name and color on the one HTML page an end user ever sees.
type Branding struct {
	AppName          string
	PrimaryColor     string
	CountdownSeconds int
	DeepLinkURL      string
	IconURL          string
}

var defaultBranding = Branding{AppName: "supermcp", PrimaryColor: "#2563eb"}

var currentBranding atomic.Pointer[Branding]

// SetBranding installs the branding cmd/ read from the
// SUPER_MCP_APP_NAME/SUPER_MCP_PRIMARY_COLOR/SUPER_MCP_COUNTDOWN_SECONDS/
// SUPER_MCP_DEEP_LINK_URL/SUPER_MCP_ICON_* environment variables. A zero
// Branding falls back to defaultBranding field by field.
func SetBranding(b Branding) {
	if b.AppName == "" {
		b.AppName = defaultBranding.AppName
	}
	if b.PrimaryColor == "" {
		b.PrimaryColor = defaultBranding.PrimaryColor
	}
	currentBranding.Store(&b)
}

func activeBranding() Branding {
	if b := currentBranding.Load(); b != nil {
		return *b
	}
	return defaultBranding
}

func renderCallbackPage(success bool, message string) string {
	b := activeBranding()
	status := "Authorization failed"
	if success {
		status = "Authorization complete"
	}

	meta := ""
	if success && b.CountdownSeconds > 0 {
		if b.DeepLinkURL != "" {
			meta = fmt.Sprintf(`<meta http-equiv="refresh" content="%d;url=%s">`, b.CountdownSeconds, html.EscapeString(b.DeepLinkURL))
		} else {
			meta = fmt.Sprintf(`<meta http-equiv="refresh" content="%d">`, b.CountdownSeconds)
		}
	}

	icon := ""
	if b.IconURL != "" {
		icon = fmt.Sprintf(`<link rel="icon" href="%s">`, html.EscapeString(b.IconURL))
	}

	return fmt.Sprintf(
		`<!doctype html><html><head>%s%s<title>%s</title></head>`+
			`<body style="font-family:sans-serif;color:%s"><h1>%s</h1><p>%s</p></body></html>`,
		meta, icon, html.EscapeString(b.AppName), html.EscapeString(b.PrimaryColor),
		html.EscapeString(status), html.EscapeString(message),
	)
}
