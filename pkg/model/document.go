package model

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidDate = goerr.New("invalid date")

var logDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// EntryDelimiter separates entries within a daily log document
const EntryDelimiter = "---"

// LogDate is a validated YYYY-MM-DD calendar date addressing a daily log
type LogDate string

// ParseLogDate validates a caller-supplied date string. Dates address a
// storage location, so anything that is not a strict calendar date is
// rejected before storage is touched.
func ParseLogDate(s string) (LogDate, error) {
	if strings.ContainsAny(s, "/\\") || strings.Contains(s, "..") {
		return "", goerr.Wrap(ErrInvalidDate, "date must not contain path separators",
			goerr.V("date", s))
	}
	if !logDatePattern.MatchString(s) {
		return "", goerr.Wrap(ErrInvalidDate, "date must be in YYYY-MM-DD format",
			goerr.V("date", s))
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", goerr.Wrap(ErrInvalidDate, "date is not a valid calendar date",
			goerr.V("date", s))
	}
	return LogDate(s), nil
}

// LogDateOf returns the log date for a point in time
func LogDateOf(t time.Time) LogDate {
	return LogDate(t.Format("2006-01-02"))
}

func (d LogDate) String() string {
	return string(d)
}

// FileName returns the date-derived name of the daily log document
func (d LogDate) FileName() string {
	return string(d) + ".md"
}

// LogDocumentKey returns the storage key of an agent's daily log document
func LogDocumentKey(agent AgentID, date LogDate) string {
	return path.Join("agents", string(agent), "memory", date.FileName())
}

// CoreDocumentKey returns the storage key of an agent's core memory document
func CoreDocumentKey(agent AgentID) string {
	return path.Join("agents", string(agent), "memory", "core.md")
}

// AgentMemoryPrefix returns the storage prefix under which all of an agent's
// memory documents live
func AgentMemoryPrefix(agent AgentID) string {
	return path.Join("agents", string(agent), "memory") + "/"
}

// LogHead returns the first line of a freshly created daily log document
func LogHead(date LogDate) string {
	return fmt.Sprintf("# Memory Log %s\n", date)
}

// CoreHead returns the first line of a freshly created core memory document
func CoreHead() string {
	return "# Core Memory\n"
}

// LogEntry formats a single daily log entry: a delimiter line, a timestamp
// with the bracketed category, and the content.
func LogEntry(ts time.Time, category, content string) string {
	return fmt.Sprintf("\n%s\n%s [%s]\n%s\n", EntryDelimiter, ts.Format("15:04"), category, content)
}

// CoreSection formats an appended core memory section headed by its category
func CoreSection(category, content string) string {
	return fmt.Sprintf("\n## %s\n\n%s\n", category, content)
}

// StripDocumentHead removes the leading "# ..." title line so it is not
// indexed as memory content.
func StripDocumentHead(content string) string {
	if !strings.HasPrefix(content, "# ") {
		return content
	}
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return strings.TrimLeft(content[i+1:], "\n")
	}
	return ""
}
