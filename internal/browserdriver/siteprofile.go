package browserdriver

// SiteProfile makes selectors and the post-send verification heuristic a
// first-class, swappable configuration instead of code, so the driver can
// be retargeted at a different listing site without a rebuild. Loaded from
// the configuration's site section (see internal/config).
type SiteProfile struct {
	// LoggedInSelector is probed to decide whether a session is
	// authenticated; its presence means "logged in".
	LoggedInSelector string

	// LoginURL, LoginUsernameSelector, LoginPasswordSelector, and
	// LoginSubmitSelector drive the scripted login flow when credentials
	// are configured. Credentials themselves are never logged or cached
	// by this package; they flow straight from Config into the driver's
	// scripted login.
	LoginURL              string
	LoginUsernameSelector string
	LoginPasswordSelector string
	LoginSubmitSelector   string

	// ProfileCardSelector matches the currently open profile card, used to
	// detect "already on a profile" landing pages in open_next_profile.
	ProfileCardSelector string
	// NextProfileSelector advances the listing to the next unseen card.
	NextProfileSelector string
	// ProfileTextSelector scopes read_profile_text to the expanded card
	// body rather than the whole page, so it captures the full text
	// instead of whatever the viewport currently shows.
	ProfileTextSelector string

	// ReplyInputPlaceholder is tried first by focus_input (placeholder-text
	// heuristic); ReplyInputFallbackSelector is the generic textarea
	// fallback.
	ReplyInputPlaceholder      string
	ReplyInputFallbackSelector string

	// SubmitLabel is the localized label of the reply submit control (e.g.
	// "Invite to connect" on the current target site); SubmitFallbackLabels
	// are tried in order after it, and SubmitButtonSelector as a final
	// selector-based fallback before falling back to pressing Enter.
	SubmitLabel          string
	SubmitFallbackLabels []string
	SubmitButtonSelector string

	// SentMarkerSelector appearing after submit confirms a send (e.g. a
	// confirmation toast or a disabled-state button); SentURLContains, if
	// set, additionally confirms a send by a post-submit URL change.
	SentMarkerSelector string
	SentURLContains    string

	// SkipSelector dismisses the current card so open_next_profile
	// advances; if empty, skip() advances via NextProfileSelector alone.
	SkipSelector string
}

// DefaultSiteProfile returns the selector set for the current target site
// named in the driver's operation contract ("Invite to connect" label).
func DefaultSiteProfile() SiteProfile {
	return SiteProfile{
		LoggedInSelector:           "[data-testid=account-menu]",
		LoginURL:                   "/login",
		LoginUsernameSelector:      "#email",
		LoginPasswordSelector:      "#password",
		LoginSubmitSelector:        "button[type=submit]",
		ProfileCardSelector:        "[data-testid=profile-card]",
		NextProfileSelector:        "[data-testid=next-profile]",
		ProfileTextSelector:        "[data-testid=profile-card-body]",
		ReplyInputPlaceholder:      "Write a message",
		ReplyInputFallbackSelector: "textarea",
		SubmitLabel:                "Invite to connect",
		SubmitFallbackLabels:       []string{"Send", "Connect"},
		SubmitButtonSelector:       "button[type=submit]",
		SentMarkerSelector:         "[data-testid=send-confirmation]",
		SkipSelector:               "[data-testid=skip-profile]",
	}
}
