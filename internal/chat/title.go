package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/keelanv/parley/internal/session"
)

// titleTurnCount is how many leading messages feed the summarization
// prompt. The opening exchange is almost always enough to name a
// conversation.
const titleTurnCount = 4

// maybeFinalizeTitleLocked kicks off asynchronous title summarization
// for the session being abandoned. Requires c.mu held. Sessions with
// less than one full exchange keep their first-message title.
func (c *Conductor) maybeFinalizeTitleLocked(ctx context.Context) {
	if !c.titlesEnabled || len(c.history) < 2 {
		return
	}

	id := c.sessionID
	model := c.model
	turns := c.history[:min(titleTurnCount, len(c.history))]
	turns = append([]session.Message(nil), turns...)

	c.wg.Add(1)
	go c.finalizeTitle(ctx, id, model, turns)
}

// finalizeTitle summarizes the opening turns into a short title and
// rewrites the session row. Fully detached: it never touches the state
// lock and never blocks a send. Failures are logged, not surfaced.
func (c *Conductor) finalizeTitle(ctx context.Context, id uuid.UUID, model string, turns []session.Message) {
	defer c.wg.Done()

	title, err := c.gen.Generate(ctx, model, titlePrompt(turns))
	if err != nil {
		c.logger.Warn("title summarization failed", "error", err, "session_id", id)
		return
	}

	title = sanitizeTitle(title)
	if title == "" {
		return
	}

	if err := c.store.UpdateSessionTitle(ctx, id, title); err != nil {
		c.logger.Warn("title update failed", "error", err, "session_id", id)
		return
	}

	c.refreshSessions(ctx)
}

func titlePrompt(turns []session.Message) string {
	var b strings.Builder
	b.WriteString("Write a short title of max 7 words for the following conversation. Reply with the title only, no quotes.\n\n")
	for _, m := range turns {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// sanitizeTitle strips quoting and newlines models like to add.
func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	return strings.Trim(title, `"'`)
}
