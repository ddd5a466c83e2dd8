// Package export renders saved transcripts as downloadable documents.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lexyhq/lexy/internal/transcription"
)

// Format identifies an export document type.
type Format string

const (
	FormatTXT Format = "txt"
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// defaultCueSeconds closes the last cue, which has no following row to
// borrow an end time from.
const defaultCueSeconds = 5

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTXT:
		return FormatTXT, nil
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip"
	case FormatVTT:
		return "text/vtt"
	}
	return "text/plain; charset=utf-8"
}

// Write renders rows to w in the requested format.
func Write(w io.Writer, f Format, rows []transcription.Row) error {
	switch f {
	case FormatTXT:
		return writeTXT(w, rows)
	case FormatSRT:
		return writeSRT(w, rows)
	case FormatVTT:
		return writeVTT(w, rows)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func writeTXT(w io.Writer, rows []transcription.Row) error {
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", row.Timestamp, row.Speaker, row.Text); err != nil {
			return err
		}
	}
	return nil
}

func writeSRT(w io.Writer, rows []transcription.Row) error {
	for i, row := range rows {
		start, err := cueSeconds(row.Timestamp)
		if err != nil {
			return err
		}
		end := cueEnd(rows, i, start)
		_, err = fmt.Fprintf(w, "%d\n%s --> %s\n%s: %s\n\n",
			i+1, srtTime(start), srtTime(end), row.Speaker, row.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeVTT(w io.Writer, rows []transcription.Row) error {
	if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
		return err
	}
	for i, row := range rows {
		start, err := cueSeconds(row.Timestamp)
		if err != nil {
			return err
		}
		end := cueEnd(rows, i, start)
		_, err = fmt.Fprintf(w, "%s --> %s\n<v %s>%s\n\n",
			vttTime(start), vttTime(end), row.Speaker, row.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// cueSeconds converts a canonical "[HH:MM:SS]" timestamp to seconds.
func cueSeconds(ts string) (int, error) {
	if !transcription.ValidTimestamp(ts) {
		return 0, fmt.Errorf("timestamp %q is not in [HH:MM:SS] form", ts)
	}
	trimmed := strings.Trim(ts, "[]")
	parts := strings.Split(trimmed, ":")
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	return h*3600 + m*60 + s, nil
}

// cueEnd borrows the next row's start as this cue's end.
func cueEnd(rows []transcription.Row, i, start int) int {
	if i+1 < len(rows) {
		if next, err := cueSeconds(rows[i+1].Timestamp); err == nil && next > start {
			return next
		}
	}
	return start + defaultCueSeconds
}

func srtTime(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d,000", seconds/3600, seconds/60%60, seconds%60)
}

func vttTime(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d.000", seconds/3600, seconds/60%60, seconds%60)
}
