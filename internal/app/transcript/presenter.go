// Package transcript derives the rendered chat transcript from a merged log.
// Everything here is a pure function of its inputs.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"

	"rentmechat/internal/domain/chat"
)

// Entry is one message as the viewer sees it.
type Entry struct {
	ID         chat.MessageID
	SenderID   chat.UserID
	Body       string
	SentAt     time.Time
	Mine       bool
	FirstOfDay bool
	Pending    bool
	Unsent     bool
}

// Present annotates a log already sorted by sent-at. The day separator compares
// calendar dates in loc; the first entry always carries it. A nil loc means local time.
func Present(msgs []chat.Message, viewer chat.UserID, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.Local
	}
	entries := make([]Entry, 0, len(msgs))
	var prevY, prevD int
	var prevM time.Month
	for i, m := range msgs {
		y, mo, d := m.SentAt.In(loc).Date()
		entries = append(entries, Entry{
			ID:         m.ID,
			SenderID:   m.SenderID,
			Body:       m.Body,
			SentAt:     m.SentAt,
			Mine:       viewer != "" && m.SenderID == viewer,
			FirstOfDay: i == 0 || y != prevY || mo != prevM || d != prevD,
			Pending:    m.Status == chat.StatusPending,
			Unsent:     m.Status == chat.StatusFailed,
		})
		prevY, prevM, prevD = y, mo, d
	}
	return entries
}

// DayLabel formats a separator, e.g. "Monday, January 1, 2024".
func DayLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("Monday, January 2, 2006")
}

// TimeLabel formats the per-message clock time.
func TimeLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}

// Write renders entries as plain text, own messages indented to the right.
func Write(w io.Writer, entries []Entry, loc *time.Location) error {
	var b strings.Builder
	for _, e := range entries {
		if e.FirstOfDay {
			fmt.Fprintf(&b, "        -- %s --\n", DayLabel(e.SentAt, loc))
		}
		marker := ""
		switch {
		case e.Unsent:
			marker = " (not sent)"
		case e.Pending:
			marker = " …"
		}
		if e.Mine {
			fmt.Fprintf(&b, "%40s%s [%s]\n", e.Body, marker, TimeLabel(e.SentAt, loc))
		} else {
			fmt.Fprintf(&b, "%s [%s]%s\n", e.Body, TimeLabel(e.SentAt, loc), marker)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
