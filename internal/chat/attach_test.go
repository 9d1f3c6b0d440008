package chat

import (
	"context"
	"strings"
	"testing"
)

func TestFoldAttachments(t *testing.T) {
	tests := []struct {
		name    string
		pending []Attachment
		text    string
		want    string
	}{
		{
			name: "no attachments passes through",
			text: "just text",
			want: "just text",
		},
		{
			name:    "single attachment gets header block",
			pending: []Attachment{{Name: "notes.txt", Content: "foo"}},
			text:    "bar",
			want:    "[Attached file: notes.txt]\nfoo\n\nbar",
		},
		{
			name: "multiple attachments in staging order",
			pending: []Attachment{
				{Name: "a.txt", Content: "alpha"},
				{Name: "b.txt", Content: "beta"},
			},
			text: "question",
			want: "[Attached file: a.txt]\nalpha\n\n[Attached file: b.txt]\nbeta\n\nquestion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := foldAttachments(tt.pending, tt.text); got != tt.want {
				t.Errorf("foldAttachments() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttachmentFoldIsOneShot(t *testing.T) {
	store := newFakeStore()
	gen := &scriptGen{chunks: []string{"ok"}}
	c, rec := newTestConductor(t, store, gen, false)
	id := c.SessionID()

	c.Stage("notes.txt", "foo")
	if err := c.Send(context.Background(), "bar"); err != nil {
		t.Fatalf("Send(bar) error = %v", err)
	}
	waitFor(t, "first reconcile", func() bool { return len(store.storedMessages(id)) == 2 })

	if err := c.Send(context.Background(), "baz"); err != nil {
		t.Fatalf("Send(baz) error = %v", err)
	}
	c.Close()
	rec.stop()

	msgs := store.storedMessages(id)
	if len(msgs) != 4 {
		t.Fatalf("persisted %d messages, want 4", len(msgs))
	}

	first := msgs[0].Content
	for _, want := range []string{"notes.txt", "foo", "bar"} {
		if !strings.Contains(first, want) {
			t.Errorf("first user message %q missing %q", first, want)
		}
	}

	// No new staging: the second send carries no attachment header.
	if second := msgs[2].Content; second != "baz" {
		t.Errorf("second user message = %q, want exactly %q", second, "baz")
	}
}

func TestStageAndUnstage(t *testing.T) {
	c, rec := newTestConductor(t, newFakeStore(), &scriptGen{}, false)

	c.Stage("a.txt", "alpha")
	c.Stage("b.txt", "beta")
	c.Stage("c.txt", "gamma")

	names := c.Attachments()
	if len(names) != 3 || names[0] != "a.txt" || names[2] != "c.txt" {
		t.Fatalf("Attachments() = %v", names)
	}

	c.Unstage(1)
	names = c.Attachments()
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "c.txt" {
		t.Errorf("Attachments() after Unstage(1) = %v, want [a.txt c.txt]", names)
	}

	// Out-of-bounds removals are no-ops.
	c.Unstage(-1)
	c.Unstage(99)
	if names = c.Attachments(); len(names) != 2 {
		t.Errorf("Attachments() after out-of-bounds Unstage = %v, want unchanged", names)
	}

	c.Close()
	rec.stop()
}
