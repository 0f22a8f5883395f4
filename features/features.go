// Package features layers the extension's behaviour on top of the engine:
// chat anti-spam and filtering, mentions, theatre mode, clickable zone
// alerts, crafting recipes in modals and activity logging.
//
// Every handler runs on the session loop. Settings changed from another
// goroutine must be applied through the loop so change hooks do too.
package features

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/dom"
	"github.com/hazyhaar/ftlext/engine"
	"github.com/hazyhaar/ftlext/hostevent"
	"github.com/hazyhaar/ftlext/recipes"
	"github.com/hazyhaar/ftlext/settings"
)

// Config holds the parts of the feature set that are not user settings.
type Config struct {
	// Contributors get the pulsing username style in chat.
	Contributors []string `yaml:"contributors"`
	// CraftItemPrefix locates the two item names of the craft modal.
	CraftItemPrefix string `yaml:"craft_item_prefix"`
	// ConsumeItemPrefix locates the item name of the consume modal.
	ConsumeItemPrefix string `yaml:"consume_item_prefix"`
	// Mobile skips desktop-only layout fixes.
	Mobile           bool          `yaml:"mobile"`
	BootstrapTimeout time.Duration `yaml:"bootstrap_timeout"`
}

func (c *Config) defaults() {
	if c.Contributors == nil {
		c.Contributors = []string{"BarryThePirate"}
	}
	if c.CraftItemPrefix == "" {
		c.CraftItemPrefix = "craft-item-modal_name"
	}
	if c.ConsumeItemPrefix == "" {
		c.ConsumeItemPrefix = "use-item-modal_name"
	}
	if c.BootstrapTimeout <= 0 {
		c.BootstrapTimeout = engine.DefaultBootstrapTimeout
	}
}

// Features is the feature set of one page session.
type Features struct {
	eng    *engine.Context
	doc    *dom.Document
	st     *settings.Settings
	logs   *activitylog.Log
	host   Host
	book   *recipes.Book
	parser *hostevent.Parser
	cfg    Config
	logger *slog.Logger
	ctx    context.Context

	onSettings func()

	username string
	userID   string

	currentFilter   string
	filterOptions   []string
	originalOptions []string
	optionListeners map[*html.Node]bool
	lastVideoTitle  string
	watchingVideo   bool
	letterbox       *html.Node

	boot *engine.Bootstrap
	stop []func()
}

// Option configures Features.
type Option func(*Features)

// WithRecipes sets the recipe table used by the modals.
func WithRecipes(b *recipes.Book) Option { return func(f *Features) { f.book = b } }

// WithConfig replaces the default Config.
func WithConfig(c Config) Option { return func(f *Features) { f.cfg = c } }

// WithSettingsOpener is called when the extension's settings button is
// clicked.
func WithSettingsOpener(fn func()) Option { return func(f *Features) { f.onSettings = fn } }

// New wires the feature set to a session. Nothing is observed until Start.
func New(eng *engine.Context, st *settings.Settings, logs *activitylog.Log, host Host, opts ...Option) *Features {
	f := &Features{
		eng:             eng,
		doc:             eng.Doc,
		st:              st,
		logs:            logs,
		host:            host,
		logger:          eng.Logger,
		parser:          hostevent.NewParser(eng.Logger),
		currentFilter:   "All",
		filterOptions:   []string{"All", "Not watching"},
		optionListeners: make(map[*html.Node]bool),
		ctx:             context.Background(),
	}
	for _, o := range opts {
		o(f)
	}
	f.cfg.defaults()
	return f
}

// SetRecipes swaps the recipe table, for a table that finished loading
// after Start.
func (f *Features) SetRecipes(b *recipes.Book) { f.book = b }

// Start installs the event listeners, the settings hooks and the bootstrap
// watchers. ctx bounds the storage writes made by handlers.
func (f *Features) Start(ctx context.Context) *engine.Bootstrap {
	f.ctx = ctx
	f.stop = append(f.stop, f.parser.Listen(f.doc, hostevent.Handlers{
		ModalOpen:  f.modalOpened,
		ModalClose: f.modalClosed,
		ToastOpen:  f.toastOpened,
	}))

	f.stop = append(f.stop,
		f.st.OnChange(f.resizeVideo, "theatreModeImproved", "theatreModeFtlExtButton", "alwaysShowFullscreenButton"),
		f.st.OnChange(f.resetAntiSpam,
			"disableAntiSpam", "hideChatMessageLength", "filterChatMessagesContaining", "filterChatMessagesExact",
			"hideItemConsumption", "hideGrenades", "hideEmotes", "hideStocks", "hideSfx", "hideTts", "hidePoors", "hideClans"),
		f.st.OnChange(f.resetChatFilter, "allowPings", "filterSfx", "filterTts"),
	)

	f.boot = f.eng.Bootstrap(f.Requests(), f.cfg.BootstrapTimeout)
	f.boot.OnDone(func(timedOut bool) {
		if timedOut {
			f.logger.Warn("features: some features may not be initialized", "pending", f.boot.Pending())
		}
	})
	return f.boot
}

// Stop removes the event listeners and settings hooks. Watchers stay owned
// by the engine.
func (f *Features) Stop() {
	for _, fn := range f.stop {
		fn()
	}
	f.stop = nil
	if f.boot != nil {
		f.boot.Stop()
	}
}

// Username returns the logged-in user recorded from the top bar.
func (f *Features) Username() string { return f.username }

// UserID returns the logged-in user's id.
func (f *Features) UserID() string { return f.userID }

// CurrentFilter returns the selected chat room filter.
func (f *Features) CurrentFilter() string { return f.currentFilter }

// chatMessages returns the live chat message list.
func (f *Features) chatMessages() *html.Node {
	return f.doc.GetElementByID("chat-messages")
}

func (f *Features) debug(msg string, args ...any) {
	if f.eng.Debug {
		f.logger.Debug(msg, args...)
	}
}
