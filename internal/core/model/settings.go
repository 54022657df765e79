package model

// Widget positions understood by the storefront embed. Other values are passed through.
const (
	PositionAboveDescription = "above-description"
	PositionBelowDescription = "below-description"
	PositionProductTabs      = "product-tabs"
	PositionCustom           = "custom"
)

const DefaultWidgetTitle = "Compatible Products"

// Settings controls how compatibility answers are displayed.
type Settings struct {
	ShowMissingProducts bool   `json:"showMissingProducts"`
	EnableWidget        bool   `json:"enableWidget"`
	WidgetTitle         string `json:"widgetTitle"`
	WidgetPosition      string `json:"widgetPosition"`
}

// DefaultSettings returns the settings used before anything has been saved.
func DefaultSettings() Settings {
	return Settings{
		ShowMissingProducts: false,
		EnableWidget:        true,
		WidgetTitle:         DefaultWidgetTitle,
		WidgetPosition:      PositionBelowDescription,
	}
}

// SettingsPatch is a partial update; nil fields are left untouched.
// The same shape is used to decode stored settings so absent fields can be backfilled.
type SettingsPatch struct {
	ShowMissingProducts *bool   `json:"showMissingProducts,omitempty"`
	EnableWidget        *bool   `json:"enableWidget,omitempty"`
	WidgetTitle         *string `json:"widgetTitle,omitempty"`
	WidgetPosition      *string `json:"widgetPosition,omitempty"`
}

// Apply merges the patch over s field by field.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.ShowMissingProducts != nil {
		s.ShowMissingProducts = *p.ShowMissingProducts
	}
	if p.EnableWidget != nil {
		s.EnableWidget = *p.EnableWidget
	}
	if p.WidgetTitle != nil {
		s.WidgetTitle = *p.WidgetTitle
	}
	if p.WidgetPosition != nil {
		s.WidgetPosition = *p.WidgetPosition
	}
	return s
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.ShowMissingProducts == nil && p.EnableWidget == nil && p.WidgetTitle == nil && p.WidgetPosition == nil
}
