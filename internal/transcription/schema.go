package transcription

import (
	"fmt"
	"regexp"
	"strings"
)

// LanguageAuto asks the model to detect the spoken language itself.
const LanguageAuto = "auto"

// Request describes one transcription attempt against the hosted model.
type Request struct {
	// AudioReference locates the audio: an object-store path, URL, or
	// inline data reference. It must be resolvable by the invoker.
	AudioReference string `json:"audioReference"`

	// LanguageHint is an optional language tag such as "en-US". Empty or
	// "auto" means no language guidance is sent with the request.
	LanguageHint string `json:"languageHint,omitempty"`
}

// LanguageGuidance returns the hint to forward to the model and whether
// one should be sent at all.
func (r Request) LanguageGuidance() (string, bool) {
	hint := strings.TrimSpace(r.LanguageHint)
	if hint == "" || strings.EqualFold(hint, LanguageAuto) {
		return "", false
	}
	return hint, true
}

// Row is one consolidated speaking turn in the transcript.
type Row struct {
	// Timestamp marks the start of the turn as "[HH:MM:SS]", rounded to
	// the nearest second.
	Timestamp string `json:"timestamp"`

	// Speaker is the diarization label. Precedence: spoken name, then
	// "Operator" for automated announcements, then gender-inferred
	// "UM<n>"/"UF<n>", then generic "Speaker A", "Speaker B", ...
	Speaker string `json:"speaker"`

	// Text is the final English text for the turn. It may carry inline
	// markup: a trailing "//" for interruptions, "[UI - <reason>]" for
	// unintelligible spans, bracketed sound descriptors like "[Laughs]",
	// and <u>...</u> around words originally spoken in English inside an
	// otherwise translated turn.
	Text string `json:"text"`
}

// Result is the validated output of one transcription run.
type Result struct {
	// Rows are the speaking turns in chronological order. The order is
	// produced by the model and never rearranged on this side.
	Rows []Row `json:"rows"`

	// DetectedLanguages lists the language codes encountered in the audio.
	DetectedLanguages []string `json:"detectedLanguages"`
}

// timestampPattern is the canonical bracketed form. Earlier revisions of
// the prompt emitted bare "HH:MM:SS" or "MM:SS"; those shapes are
// deprecated and rejected here.
var timestampPattern = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\]$`)

// ValidTimestamp reports whether ts matches the canonical "[HH:MM:SS]" form.
func ValidTimestamp(ts string) bool {
	return timestampPattern.MatchString(ts)
}

// ValidateRequest checks a request before it is allowed near the model.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.AudioReference) == "" {
		return fmt.Errorf("audio reference is required")
	}
	return nil
}

// ValidateResult checks a decoded model response against the output
// contract. A violation rejects the whole result; rows are never coerced
// or dropped individually.
func ValidateResult(res *Result) error {
	if res == nil {
		return fmt.Errorf("result is missing")
	}
	if res.Rows == nil {
		return fmt.Errorf("result is missing rows")
	}
	for i, row := range res.Rows {
		if err := validateRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	for i, lang := range res.DetectedLanguages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("detected language %d is empty", i)
		}
	}
	return nil
}

func validateRow(row Row) error {
	if row.Timestamp == "" {
		return fmt.Errorf("missing timestamp")
	}
	if !ValidTimestamp(row.Timestamp) {
		return fmt.Errorf("timestamp %q is not in [HH:MM:SS] form", row.Timestamp)
	}
	if strings.TrimSpace(row.Speaker) == "" {
		return fmt.Errorf("missing speaker")
	}
	if strings.HasSuffix(row.Speaker, ":") || strings.HasSuffix(row.Speaker, ".") {
		return fmt.Errorf("speaker %q carries trailing punctuation", row.Speaker)
	}
	if row.Text == "" {
		return fmt.Errorf("missing text")
	}
	return nil
}
