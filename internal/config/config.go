package config

import (
	"fmt"

	"github.com/haasonsaas/outreach-autopilot/internal/browserdriver"
	"github.com/haasonsaas/outreach-autopilot/internal/domain"
)

// Config is the full recognized option table from the configuration
// design, plus the ambient fields (self profile, criteria, template, site
// selectors, banned phrases) a complete run needs but the option table
// leaves implicit.
type Config struct {
	SelfProfile string `yaml:"self_profile"`
	Criteria    string `yaml:"criteria"`
	Template    string `yaml:"template"`

	DecisionModel string `yaml:"decision_model"`
	CUAModel      string `yaml:"cua_model"`

	ListingURL   string `yaml:"listing_url"`
	ProfileLimit int    `yaml:"profile_limit"`
	PaceSeconds  int    `yaml:"pace_seconds"`

	DailyQuota  int `yaml:"daily_quota"`
	WeeklyQuota int `yaml:"weekly_quota"`

	Shadow   bool `yaml:"shadow"`
	AutoSend bool `yaml:"auto_send"`

	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Temperature     *float64 `yaml:"temperature"`
	Verbosity       string   `yaml:"verbosity"`
	ReasoningEffort string   `yaml:"reasoning_effort"`
	ServiceTier     string   `yaml:"service_tier"`

	PlannerMode     bool `yaml:"planner_mode"`
	PlannerMaxTurns int  `yaml:"planner_max_turns"`

	Credentials *CredentialsConfig `yaml:"credentials"`

	MaxMessageLength int      `yaml:"max_message_length"`
	BannedPhrases    []string `yaml:"banned_phrases"`

	ProviderBaseURL string `yaml:"provider_base_url"`
	ProviderAPIKey  string `yaml:"provider_api_key"`

	EventLogPath   string `yaml:"event_log_path"`
	SeenStorePath  string `yaml:"seen_store_path"`
	QuotaStorePath string `yaml:"quota_store_path"`

	// Site overrides the default selector/verification configuration; any
	// zero-valued field falls back to browserdriver.DefaultSiteProfile.
	Site *SiteConfig `yaml:"site"`

	// ControlAddr is the listen address for the HTTP control API.
	ControlAddr string `yaml:"control_addr"`

	Headless bool `yaml:"headless"`
}

// CredentialsConfig is the optional login username/password for the
// target site.
type CredentialsConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SiteConfig mirrors browserdriver.SiteProfile in YAML form so selectors
// and the post-send verification heuristic can be swapped without a
// rebuild, per the design's Open Question (a).
type SiteConfig struct {
	LoggedInSelector           string   `yaml:"logged_in_selector"`
	LoginURL                   string   `yaml:"login_url"`
	LoginUsernameSelector      string   `yaml:"login_username_selector"`
	LoginPasswordSelector      string   `yaml:"login_password_selector"`
	LoginSubmitSelector        string   `yaml:"login_submit_selector"`
	ProfileCardSelector        string   `yaml:"profile_card_selector"`
	NextProfileSelector        string   `yaml:"next_profile_selector"`
	ProfileTextSelector        string   `yaml:"profile_text_selector"`
	ReplyInputPlaceholder      string   `yaml:"reply_input_placeholder"`
	ReplyInputFallbackSelector string   `yaml:"reply_input_fallback_selector"`
	SubmitLabel                string   `yaml:"submit_label"`
	SubmitFallbackLabels       []string `yaml:"submit_fallback_labels"`
	SubmitButtonSelector       string   `yaml:"submit_button_selector"`
	SentMarkerSelector         string   `yaml:"sent_marker_selector"`
	SentURLContains            string   `yaml:"sent_url_contains"`
	SkipSelector               string   `yaml:"skip_selector"`
}

// ApplyDefaults fills unset numeric/string options with their documented
// defaults.
func (c *Config) ApplyDefaults() {
	if c.ProfileLimit == 0 {
		c.ProfileLimit = 20
	}
	if c.PaceSeconds == 0 {
		c.PaceSeconds = 45
	}
	if c.DailyQuota == 0 {
		c.DailyQuota = 25
	}
	if c.WeeklyQuota == 0 {
		c.WeeklyQuota = 120
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = 4000
	}
	if c.PlannerMaxTurns == 0 {
		c.PlannerMaxTurns = browserdriver.DefaultPlannerMaxTurns
	}
	if c.MaxMessageLength == 0 {
		c.MaxMessageLength = 1000
	}
	if c.EventLogPath == "" {
		c.EventLogPath = "autopilot-events.jsonl"
	}
	if c.SeenStorePath == "" {
		c.SeenStorePath = "autopilot-seen.db"
	}
	if c.QuotaStorePath == "" {
		c.QuotaStorePath = "autopilot-quota.db"
	}
}

// Validate reports a configuration problem for any option outside its
// documented range, after ApplyDefaults has filled in zero values.
func (c *Config) Validate() error {
	c.ApplyDefaults()

	if c.SelfProfile == "" {
		return fmt.Errorf("config: self_profile is required")
	}
	if c.Criteria == "" {
		return fmt.Errorf("config: criteria is required")
	}
	if c.Template == "" {
		return fmt.Errorf("config: template is required")
	}
	if c.ListingURL == "" {
		return fmt.Errorf("config: listing_url is required")
	}
	if c.MaxOutputTokens < 1 || c.MaxOutputTokens > 128000 {
		return fmt.Errorf("config: max_output_tokens must be in [1, 128000], got %d", c.MaxOutputTokens)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("config: temperature must be in [0, 2], got %v", *c.Temperature)
	}
	switch c.Verbosity {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("config: verbosity must be one of low/medium/high, got %q", c.Verbosity)
	}
	switch c.ReasoningEffort {
	case "", "minimal", "low", "medium", "high":
	default:
		return fmt.Errorf("config: reasoning_effort must be one of minimal/low/medium/high, got %q", c.ReasoningEffort)
	}
	if c.ProviderAPIKey == "" {
		return fmt.Errorf("config: provider_api_key is required")
	}
	return nil
}

// ResolvedSiteProfile resolves the configured Site overrides onto the
// default selector set.
func (c *Config) ResolvedSiteProfile() browserdriver.SiteProfile {
	profile := browserdriver.DefaultSiteProfile()
	if c.Site == nil {
		return profile
	}
	s := c.Site
	if s.LoggedInSelector != "" {
		profile.LoggedInSelector = s.LoggedInSelector
	}
	if s.LoginURL != "" {
		profile.LoginURL = s.LoginURL
	}
	if s.LoginUsernameSelector != "" {
		profile.LoginUsernameSelector = s.LoginUsernameSelector
	}
	if s.LoginPasswordSelector != "" {
		profile.LoginPasswordSelector = s.LoginPasswordSelector
	}
	if s.LoginSubmitSelector != "" {
		profile.LoginSubmitSelector = s.LoginSubmitSelector
	}
	if s.ProfileCardSelector != "" {
		profile.ProfileCardSelector = s.ProfileCardSelector
	}
	if s.NextProfileSelector != "" {
		profile.NextProfileSelector = s.NextProfileSelector
	}
	if s.ProfileTextSelector != "" {
		profile.ProfileTextSelector = s.ProfileTextSelector
	}
	if s.ReplyInputPlaceholder != "" {
		profile.ReplyInputPlaceholder = s.ReplyInputPlaceholder
	}
	if s.ReplyInputFallbackSelector != "" {
		profile.ReplyInputFallbackSelector = s.ReplyInputFallbackSelector
	}
	if s.SubmitLabel != "" {
		profile.SubmitLabel = s.SubmitLabel
	}
	if len(s.SubmitFallbackLabels) > 0 {
		profile.SubmitFallbackLabels = s.SubmitFallbackLabels
	}
	if s.SubmitButtonSelector != "" {
		profile.SubmitButtonSelector = s.SubmitButtonSelector
	}
	if s.SentMarkerSelector != "" {
		profile.SentMarkerSelector = s.SentMarkerSelector
	}
	if s.SentURLContains != "" {
		profile.SentURLContains = s.SentURLContains
	}
	if s.SkipSelector != "" {
		profile.SkipSelector = s.SkipSelector
	}
	return profile
}

// ResolvedCredentials resolves the optional browserdriver.Credentials from
// config.
func (c *Config) ResolvedCredentials() browserdriver.Credentials {
	if c.Credentials == nil {
		return browserdriver.Credentials{}
	}
	return browserdriver.Credentials{Username: c.Credentials.Username, Password: c.Credentials.Password}
}

// RunContext builds the immutable RunContext for one run, given the run id
// and the models ModelResolver chose.
func (c *Config) RunContext(runID, decisionModel, cuaModel string) domain.RunContext {
	return domain.RunContext{
		RunID:         runID,
		SelfProfile:   c.SelfProfile,
		Criteria:      c.Criteria,
		Template:      c.Template,
		AutoSend:      c.AutoSend,
		Shadow:        c.Shadow,
		ProfileLimit:  c.ProfileLimit,
		PaceSeconds:   c.PaceSeconds,
		DecisionModel: decisionModel,
		CUAModel:      cuaModel,
	}
}
