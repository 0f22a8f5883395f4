package hostevent

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/ftlext/dom"
)

func TestDecode_ObjectAndString(t *testing.T) {
	cases := map[string]string{
		"object": `{"modal":"Craft Item"}`,
		"string": `"{\"modal\":\"Craft Item\"}"`,
	}
	for name, raw := range cases {
		var m Modal
		if err := Decode(json.RawMessage(raw), &m); err != nil {
			t.Fatalf("%s: Decode: %v", name, err)
		}
		if m.Modal != "Craft Item" {
			t.Errorf("%s: Modal: got %q, want %q", name, m.Modal, "Craft Item")
		}
	}
}

func TestDecode_FailsClosed(t *testing.T) {
	for _, raw := range []string{``, `null`, `"{broken"`, `[1,2]`, `42`, `"plain words"`} {
		var m Modal
		err := Decode(json.RawMessage(raw), &m)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q): got %v, want ErrMalformed", raw, err)
		}
	}
}

func TestToast_StructuredMessage(t *testing.T) {
	var tt Toast
	raw := `{"id":"x","header":"Hi","message":{"text":"nested"},"duration":3000}`
	if err := Decode(json.RawMessage(raw), &tt); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tt.Message != `{"text":"nested"}` {
		t.Errorf("Message: got %q", tt.Message)
	}
	if tt.Duration != 3000 {
		t.Errorf("Duration: got %d, want 3000", tt.Duration)
	}
}

func TestListen_LogsOncePerEvent(t *testing.T) {
	var buf bytes.Buffer
	p := NewParser(slog.New(slog.NewTextHandler(&buf, nil)))
	doc := dom.Blank()

	var opened []string
	off := p.Listen(doc, Handlers{ModalOpen: func(m Modal) { opened = append(opened, m.Modal) }})

	doc.DispatchEvent(dom.Event{Type: ModalOpen, Detail: json.RawMessage(`"nope`)})
	doc.DispatchEvent(dom.Event{Type: ModalOpen, Detail: json.RawMessage(`"nope`)})
	doc.DispatchEvent(dom.Event{Type: ModalOpen, Detail: json.RawMessage(`{"modal":"Use Fishtoy"}`)})

	if len(opened) != 1 || opened[0] != "Use Fishtoy" {
		t.Errorf("opened: got %v", opened)
	}
	if n := strings.Count(buf.String(), "dropping event"); n != 1 {
		t.Errorf("warnings: got %d, want 1", n)
	}

	off()
	doc.DispatchEvent(dom.Event{Type: ModalOpen, Detail: json.RawMessage(`{"modal":"Craft Item"}`)})
	if len(opened) != 1 {
		t.Error("listener still active after remove")
	}
}

type journal struct{ events []dom.Event }

func (j *journal) Mutated(dom.Record)     {}
func (j *journal) Dispatched(e dom.Event) { j.events = append(j.events, e) }

func TestOpenToast_RoundTripsThroughParser(t *testing.T) {
	j := &journal{}
	doc := dom.Blank(dom.WithJournal(j))
	now := time.UnixMilli(1700000000123)

	if err := OpenToast(doc, AdminToast("Clickable zone detected", "", "ftl-ext-clickable-zone", now)); err != nil {
		t.Fatalf("OpenToast: %v", err)
	}
	if len(j.events) != 1 {
		t.Fatalf("journaled events: got %d, want 1", len(j.events))
	}
	if j.events[0].Detail[0] != '"' {
		t.Errorf("detail should be string-wrapped JSON, got %s", j.events[0].Detail)
	}
	tt, ok := NewParser(nil).Toast(j.events[0])
	if !ok {
		t.Fatal("Toast: decode failed")
	}
	if tt.ID != "ftl-ext-clickable-zone-1700000000123" {
		t.Errorf("ID: got %q", tt.ID)
	}
	if tt.Header != "Fishtank Live Extended" || tt.Type != "ftl-ext-admin-message" {
		t.Errorf("toast: got %+v", tt)
	}
}
