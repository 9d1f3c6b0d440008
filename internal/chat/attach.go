package chat

import (
	"fmt"
	"strings"
)

// Attachment is user-supplied named text staged for inclusion in the
// next outgoing message. Attachments are never persisted standalone:
// they are folded into the next user message and discarded.
type Attachment struct {
	Name    string
	Content string
}

// Stage adds an attachment to the pending list. No de-duplication and
// no size limit; the caller decides what is worth attaching.
func (c *Conductor) Stage(name, content string) {
	c.mu.Lock()
	c.pending = append(c.pending, Attachment{Name: name, Content: content})
	names := c.attachmentNamesLocked()
	c.mu.Unlock()

	c.emit(Event{Attachments: names})
}

// Unstage removes the attachment at index. Out-of-bounds indexes are a
// no-op.
func (c *Conductor) Unstage(index int) {
	c.mu.Lock()
	if index >= 0 && index < len(c.pending) {
		c.pending = append(c.pending[:index], c.pending[index+1:]...)
	}
	names := c.attachmentNamesLocked()
	c.mu.Unlock()

	c.emit(Event{Attachments: names})
}

// Attachments returns the names of the currently staged attachments.
func (c *Conductor) Attachments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachmentNamesLocked()
}

func (c *Conductor) attachmentNamesLocked() []string {
	names := make([]string, len(c.pending))
	for i, a := range c.pending {
		names[i] = a.Name
	}
	return names
}

// foldAttachments composes the outgoing message content: a header block
// listing each attachment's name and full content, then the raw user
// text. With nothing staged the user text passes through untouched.
func foldAttachments(pending []Attachment, userText string) string {
	if len(pending) == 0 {
		return userText
	}

	var b strings.Builder
	for _, a := range pending {
		fmt.Fprintf(&b, "[Attached file: %s]\n%s\n\n", a.Name, a.Content)
	}
	b.WriteString(userText)
	return b.String()
}
