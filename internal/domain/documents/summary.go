package documents

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// Badge labels shown on document cards, in priority order.
const (
	BadgeExpired    = "期限切れ"
	BadgeSensitive  = "要配慮"
	BadgeHumanEdit  = "人が修正"
	BadgeStructured = "構造化済"
	BadgeRead       = "既読"
)

const maxBadges = 3

// CardSummary is the condensed card view of a document for list screens.
type CardSummary struct {
	Title    *string  `json:"title"`
	Subtitle *string  `json:"subtitle"`
	Badges   []string `json:"badges"`
}

// BuildCardSummary derives the card title, subtitle, and up to three badges.
// Title prefers the extracted patient name over the original filename.
// Subtitle prefers a short suspected diagnosis over a truncated chief
// complaint.
func BuildCardSummary(d *Document, now time.Time) CardSummary {
	var s *StructuredFields
	if len(d.StructuredJSON) > 0 {
		var parsed StructuredFields
		if err := json.Unmarshal(d.StructuredJSON, &parsed); err == nil {
			s = &parsed
		}
	}

	var title *string
	if s != nil && s.PatientName != nil && *s.PatientName != "" {
		title = s.PatientName
	} else if d.OriginalFilename != "" {
		title = &d.OriginalFilename
	}

	var subtitle *string
	if s != nil {
		if s.SuspectedDiagnosis != nil && *s.SuspectedDiagnosis != "" &&
			utf8.RuneCountInString(*s.SuspectedDiagnosis) <= 25 {
			subtitle = s.SuspectedDiagnosis
		} else if s.ChiefComplaint != nil && *s.ChiefComplaint != "" {
			t := truncateRunes(*s.ChiefComplaint, 20)
			subtitle = &t
		}
	}

	var badges []string
	if now.After(d.ExpiresAt) {
		badges = append(badges, BadgeExpired)
	}
	if s != nil && len(s.Warnings) > 0 {
		badges = append(badges, BadgeSensitive)
	}
	humanEdited := d.StructuredUpdatedBy != nil && *d.StructuredUpdatedBy == "human"
	if s != nil && humanEdited {
		badges = append(badges, BadgeHumanEdit)
	}
	if s != nil && !humanEdited {
		badges = append(badges, BadgeStructured)
	}
	if ext := strings.ToLower(d.FileExt); ext != "" && ext != "pdf" {
		badges = append(badges, strings.ToUpper(ext))
	}
	if d.Status == StatusDownloaded {
		badges = append(badges, BadgeRead)
	}
	if len(badges) > maxBadges {
		badges = badges[:maxBadges]
	}

	return CardSummary{Title: title, Subtitle: subtitle, Badges: badges}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
