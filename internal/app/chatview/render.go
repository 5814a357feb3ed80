package chatview

import (
	"fmt"
	"io"
	"strings"
	"time"

	"rentmechat/internal/app/transcript"
)

// Render draws a snapshot as plain text. Ready panels list the transcript and
// a reminder when some messages were not sent.
func Render(w io.Writer, snap Snapshot, loc *time.Location) error {
	var b strings.Builder
	switch snap.Phase {
	case PhaseLoading:
		b.WriteString("Loading…\n")
	case PhaseClosed:
		b.WriteString("Chat closed.\n")
	case PhaseReady:
		if err := transcript.Write(&b, snap.Entries, loc); err != nil {
			return err
		}
		if snap.Unsent > 0 {
			fmt.Fprintf(&b, "%d message(s) not sent. Type /retry to send again.\n", snap.Unsent)
		}
	default:
		b.WriteString(snap.Title)
		b.WriteString("\n")
		if snap.Detail != "" {
			b.WriteString(snap.Detail)
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
