package state

import "encoding/json"

// Option is a choice currently offered to the player.
type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

// UnmarshalJSON accepts "label" as an alias for "text".
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Label string `json:"label"`
		Style string `json:"style"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.ID = raw.ID
	o.Text = raw.Text
	if o.Text == "" {
		o.Text = raw.Label
	}
	o.Style = raw.Style
	return nil
}

// FindOption returns the currently offered option with id.
func (gs *GameState) FindOption(id string) (Option, bool) {
	for _, o := range gs.CurrentOptions {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}
