package bridge

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const binding = "__ftlext_binding"

//go:embed relay.js
var relayJS string

// Tab is the page the relay runs in.
type Tab struct {
	Page   *rod.Page
	ID     string
	URL    string
	router *rod.HijackRouter
	cancel context.CancelFunc
}

// OpenTab creates a tab with the relay installed on every document, then
// navigates to pageURL. Each binding payload is handed to onPayload on the
// listener goroutine.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, onPayload func(*Tab, string)) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("bridge: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("bridge: create tab: %w", err)
	}

	t := &Tab{Page: page, ID: string(page.TargetID), URL: pageURL}
	if len(mgr.cfg.ResourceBlocking) > 0 {
		t.router = blockResources(page, mgr.cfg.ResourceBlocking)
	}

	if err := (proto.RuntimeAddBinding{Name: binding}).Call(page); err != nil {
		t.Close()
		return nil, fmt.Errorf("bridge: add binding: %w", err)
	}
	lctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	wait := page.Context(lctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name == binding {
			onPayload(t, e.Payload)
		}
	})
	go wait()

	if _, err := page.EvalOnNewDocument(relayJS); err != nil {
		t.Close()
		return nil, fmt.Errorf("bridge: install relay: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(ctx, 30*time.Second)
	defer navCancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("bridge: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("bridge: wait load timeout", "url", pageURL, "error", err)
	}
	return t, nil
}

// Close stops the listener and closes the tab.
func (t *Tab) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.router != nil {
		_ = t.router.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
