package settings

// Kind is the value type of a setting.
type Kind string

const (
	Boolean   Kind = "boolean"
	Number    Kind = "number"
	TextArray Kind = "text-array"
	// Order is a boolean rendered as an ascending/descending switch.
	Order Kind = "order"
)

// Definition describes one setting.
type Definition struct {
	Key          string  `json:"key"`
	Group        string  `json:"group"`
	SubGroup     string  `json:"sub_group,omitempty"`
	DisplayName  string  `json:"display_name"`
	Kind         Kind    `json:"type"`
	Default      any     `json:"default"`
	Min          float64 `json:"min,omitempty"`
	Max          float64 `json:"max,omitempty"`
	GroupToggler bool    `json:"group_toggler,omitempty"`
}

// HasRange reports whether Min and Max apply.
func (d Definition) HasRange() bool { return d.Kind == Number && d.Max > d.Min }

func boolean(group, key, name string, def bool) Definition {
	return Definition{Key: key, Group: group, DisplayName: name, Kind: Boolean, Default: def}
}

func toggler(group, sub, key, name string) Definition {
	return Definition{Key: key, Group: group, SubGroup: sub, DisplayName: name, Kind: Boolean, Default: false, GroupToggler: true}
}

func logSize(sub, key, name string) Definition {
	return Definition{Key: key, Group: "Logging", SubGroup: sub, DisplayName: name, Kind: Number, Default: 50.0, Min: 1, Max: 200}
}

func order(sub, key string) Definition {
	return Definition{Key: key, Group: "Logging", SubGroup: sub, Kind: Order, Default: false}
}

func logFilter(key, name string) Definition {
	return Definition{Key: key, Group: "Logging", SubGroup: "Admin Messages", DisplayName: name, Kind: Boolean, Default: true}
}

// Schema lists every setting in display order.
var Schema = []Definition{
	boolean("General", "autoResolveThinkFastMission", "Auto Resolve 'Think Fast!' Mission", false),
	boolean("General", "autoCloseSeasonPassPopup", "Auto Close Season Pass Popup", false),
	boolean("General", "theatreModeImproved", "Improved Theatre Mode", true),
	boolean("General", "theatreModeFtlExtButton", "FTL Extended Settings Button in Theatre Mode", true),
	boolean("General", "alwaysShowFullscreenButton", "Always Show Fullscreen Button", true),
	boolean("General", "enableKeyboardShortcuts", "Enable Keyboard Shortcuts [F, E, N, P, B, S]", true),

	toggler("Anti-Spam", "", "disableAntiSpam", "Disable All Anti-Spam"),
	{Key: "hideChatMessageLength", Group: "Anti-Spam", DisplayName: "Hide Messages Over Length (Max 200)", Kind: Number, Default: 200.0, Min: 1, Max: 200},
	{Key: "filterChatMessagesContaining", Group: "Anti-Spam", DisplayName: "Hide Messages Containing", Kind: TextArray, Default: []string{}},
	{Key: "filterChatMessagesExact", Group: "Anti-Spam", DisplayName: "Hide Messages Exactly Matching", Kind: TextArray, Default: []string{}},
	boolean("Anti-Spam", "hideItemConsumption", "Hide Item Consumption", false),
	boolean("Anti-Spam", "hideGrenades", "Hide Grenades (Doesn't Mute Audio)", false),
	boolean("Anti-Spam", "hideEmotes", "Hide Emotes", false),
	boolean("Anti-Spam", "hideStocks", "Hide Stox", false),
	boolean("Anti-Spam", "hideSfx", "Hide SFX", false),
	boolean("Anti-Spam", "hideTts", "Hide TTS", false),
	boolean("Anti-Spam", "hidePoors", "Hide Poors (Grey Texters)", false),
	boolean("Anti-Spam", "hideClans", "Hide Clan Notifications", false),

	toggler("Chat Filters", "", "disableFiltering", "Disable All Chat Filtering (Requires Refresh)"),
	boolean("Chat Filters", "autoApplyChatFilters", "Auto Apply Chat Filters When Viewing Streams", false),
	boolean("Chat Filters", "enableChatDropdownIfDisabled", "Re-enable Dropdown if Disabled (Requires Refresh)", false),
	boolean("Chat Filters", "allowPings", "Always Show When You're @'ed (Doesn't Mute Audio)", true),
	boolean("Chat Filters", "filterSfx", "Apply Filter to SFX Chat Messages", false),
	boolean("Chat Filters", "filterTts", "Apply Filter to TTS Chat Messages", false),

	boolean("Crafting", "displayRecipesInCraftModal", "Show Recipes When Crafting", true),
	boolean("Crafting", "displayRecipesInConsumeModal", "Show Recipes When Consuming", true),

	toggler("Logging", "Admin Messages", "disableAdminMessageLogging", "Disable Admin Message Logging"),
	logFilter("logAdminMessagesLevelUpsMissionsMedals", "Log 'Level Up'/'Mission'/'Medal Earned' Messages"),
	logFilter("logAdminMessagesFoundItem", "Log 'Found an Item' Messages"),
	logFilter("logAdminMessagesNewPollStarted", "Log 'New Poll Started' Messages"),
	logFilter("logAdminMessagesGiftedSeasonPasses", "Log Gifted Season Passes"),
	logFilter("logAdminMessagesTips", "Log Tips Sent/Received"),
	logFilter("logAdminMessagesFishToy", "Log Fish Toy Messages"),
	logSize("Admin Messages", "logAdminMessagesNumber", "Admin Message Log Size (Max 200)"),
	order("Admin Messages", "logAdminMessagesOrderAsc"),

	toggler("Logging", "Staff Messages", "disableStaffMessageLogging", "Disable Staff Message Logging"),
	logSize("Staff Messages", "logStaffMessagesNumber", "Staff Message Log Size (Max 200)"),
	order("Staff Messages", "logStaffMessagesOrderAsc"),

	toggler("Logging", "Pings", "disablePingsLogging", "Disable Pings Logging"),
	logSize("Pings", "logPingsNumber", "Pings Log Size (Max 200)"),
	order("Pings", "logPingsOrderAsc"),

	toggler("Logging", "TTS", "disableTtsLogging", "Disable TTS Logging"),
	logSize("TTS", "logTtsNumber", "TTS Log Size (Max 200)"),
	order("TTS", "logTtsOrderAsc"),

	toggler("Logging", "SFX", "disableSfxLogging", "Disable SFX Logging"),
	logSize("SFX", "logSfxNumber", "SFX Log Size (Max 200)"),
	order("SFX", "logSfxOrderAsc"),

	toggler("Clickable Zones", "", "disableUnhidingClickableZones", "Disable Un-hiding Clickable Zones & Alerts"),
	boolean("Clickable Zones", "clickableZoneAlerts", "Hidden Clickable Zone Alerts", true),
	boolean("Clickable Zones", "clickableZoneUnhide", "Un-hide Clickable Zones", true),
}

// Lookup returns the definition of key.
func Lookup(key string) (Definition, bool) {
	for _, d := range Schema {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}
