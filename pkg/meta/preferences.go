package meta

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Preferences are user settings stored apart from game progress.
type Preferences struct {
	APIKey  string `json:"apiKey,omitempty"`
	Theme   string `json:"theme,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
	Model   string `json:"model,omitempty"`
}

// DefaultPreferences returns the preferences used before anything is saved.
func DefaultPreferences() *Preferences {
	return &Preferences{Theme: ThemeDark}
}
