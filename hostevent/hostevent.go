// Package hostevent decodes the custom events the host application
// dispatches on its document (modals and toasts) and encodes the ones this
// layer dispatches back.
//
// The host sends the event detail either as an object or as a JSON string
// wrapping one. Both decode to the same typed record. Anything else is
// dropped and logged once per event name.
package hostevent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/ftlext/dom"
)

// Event names.
const (
	ModalOpen  = "modalopen"
	ModalClose = "modalclose"
	ToastOpen  = "toastopen"
	ToastClose = "toastclose"
)

// ErrMalformed wraps every decoding failure.
var ErrMalformed = errors.New("hostevent: malformed detail")

// Modal is the detail of modalopen.
type Modal struct {
	Modal string          `json:"modal"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Toast is the detail of toastopen and toastclose.
type Toast struct {
	ID       string `json:"id"`
	Header   Text   `json:"header,omitempty"`
	Message  Text   `json:"message,omitempty"`
	Type     string `json:"type,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// Text accepts a JSON string or any other JSON value, which is kept as its
// compact encoding. The host occasionally sends structured toast bodies.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = ""
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	*t = Text(buf.String())
	return nil
}

// Decode normalises raw into v. raw may be an object or a JSON string whose
// content is an object.
func Decode(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: empty", ErrMalformed)
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw = json.RawMessage(inner)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Handlers are called with decoded events. Nil handlers are skipped.
type Handlers struct {
	ModalOpen  func(Modal)
	ModalClose func()
	ToastOpen  func(Toast)
	ToastClose func(Toast)
}

// Parser decodes events and remembers which event names already produced a
// warning.
type Parser struct {
	logger *slog.Logger
	warned map[string]bool
}

// NewParser creates a Parser. A nil logger uses slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger, warned: make(map[string]bool)}
}

// Modal decodes a modalopen event.
func (p *Parser) Modal(ev dom.Event) (Modal, bool) {
	var m Modal
	if err := Decode(ev.Detail, &m); err != nil {
		p.fail(ev.Type, err)
		return Modal{}, false
	}
	return m, true
}

// Toast decodes a toastopen or toastclose event.
func (p *Parser) Toast(ev dom.Event) (Toast, bool) {
	var t Toast
	if err := Decode(ev.Detail, &t); err != nil {
		p.fail(ev.Type, err)
		return Toast{}, false
	}
	return t, true
}

func (p *Parser) fail(name string, err error) {
	if p.warned[name] {
		return
	}
	p.warned[name] = true
	p.logger.Warn("hostevent: dropping event", "event", name, "error", err)
}

// Listen registers h on doc and returns a function removing every listener.
func (p *Parser) Listen(doc *dom.Document, h Handlers) func() {
	var offs []func()
	if h.ModalOpen != nil {
		offs = append(offs, doc.AddEventListener(ModalOpen, func(ev dom.Event) {
			if m, ok := p.Modal(ev); ok {
				h.ModalOpen(m)
			}
		}))
	}
	if h.ModalClose != nil {
		offs = append(offs, doc.AddEventListener(ModalClose, func(dom.Event) { h.ModalClose() }))
	}
	if h.ToastOpen != nil {
		offs = append(offs, doc.AddEventListener(ToastOpen, func(ev dom.Event) {
			if t, ok := p.Toast(ev); ok {
				h.ToastOpen(t)
			}
		}))
	}
	if h.ToastClose != nil {
		offs = append(offs, doc.AddEventListener(ToastClose, func(ev dom.Event) {
			if t, ok := p.Toast(ev); ok {
				h.ToastClose(t)
			}
		}))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// encode produces the string-wrapped detail the host itself uses.
func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// OpenToast dispatches a toastopen event.
func OpenToast(doc *dom.Document, t Toast) error {
	s, err := encode(t)
	if err != nil {
		return fmt.Errorf("hostevent: encode toast: %w", err)
	}
	return doc.Dispatch(ToastOpen, s)
}

// CloseToast dispatches a toastclose event for id.
func CloseToast(doc *dom.Document, id string) error {
	s, err := encode(Toast{ID: id})
	if err != nil {
		return fmt.Errorf("hostevent: encode toast close: %w", err)
	}
	return doc.Dispatch(ToastClose, s)
}

// CloseModal dispatches a modalclose event.
func CloseModal(doc *dom.Document) error {
	return doc.Dispatch(ModalClose, nil)
}

// AdminToast builds the extension's own toast. The id gets a millisecond
// suffix so repeated alerts are distinct.
func AdminToast(message, header, id string, now time.Time) Toast {
	if header == "" {
		header = "Fishtank Live Extended"
	}
	if id == "" {
		id = "ftl-ext-admin-message"
	}
	return Toast{
		ID:       fmt.Sprintf("%s-%d", id, now.UnixMilli()),
		Header:   Text(header),
		Message:  Text(message),
		Type:     "ftl-ext-admin-message",
		Duration: 5000,
	}
}
