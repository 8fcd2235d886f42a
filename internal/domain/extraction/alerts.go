package extraction

import (
	"fmt"
	"strings"
)

// Sensitive-content keywords with the severity each one signals. The scan is
// a notification of possibility, never a determination; every alert requires
// human review before sending.
var sensitiveKeywords = []struct {
	keyword  string
	severity string
}{
	{"HIV", "high"},
	{"感染症", "high"},
	{"精神", "high"},
	{"がん", "high"},
	{"障害", "high"},
	{"病名", "medium"},
	{"診断", "medium"},
	{"検査結果", "medium"},
	{"手術", "medium"},
	{"入院", "medium"},
	{"投薬", "low"},
	{"処方", "low"},
}

const (
	snippetRadius = 20
	maxEvidence   = 3
)

// severityRank orders severities for reporting; higher is more severe.
var severityRank = map[string]int{"low": 1, "medium": 2, "high": 3}

// DetectAlerts scans text for sensitive-content keywords. Hits for the same
// keyword are merged into one alert carrying up to maxEvidence snippets,
// ordered by severity descending.
func DetectAlerts(text string) []Alert {
	if text == "" {
		return nil
	}

	var alerts []Alert
	for _, kw := range sensitiveKeywords {
		evidence := collectEvidence(text, kw.keyword)
		if len(evidence) == 0 {
			continue
		}
		alerts = append(alerts, Alert{
			ID:       fmt.Sprintf("sensitive-%s", kw.keyword),
			Label:    fmt.Sprintf("要配慮情報の可能性：%s", kw.keyword),
			Severity: kw.severity,
			Evidence: evidence,
		})
	}

	// stable by construction within a severity; bubble higher severities up
	for i := 1; i < len(alerts); i++ {
		for j := i; j > 0 && severityRank[alerts[j].Severity] > severityRank[alerts[j-1].Severity]; j-- {
			alerts[j], alerts[j-1] = alerts[j-1], alerts[j]
		}
	}
	return alerts
}

func collectEvidence(text, keyword string) []Evidence {
	var out []Evidence
	offset := 0
	for len(out) < maxEvidence {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			break
		}
		idx += offset
		out = append(out, Evidence{
			Keyword: keyword,
			Snippet: snippetAround(text, idx, len(keyword)),
		})
		offset = idx + len(keyword)
	}
	return out
}

// snippetAround cuts a rune-safe window around the match.
func snippetAround(text string, byteIdx, matchLen int) string {
	runes := []rune(text)
	// translate byte index to rune index
	runeIdx := len([]rune(text[:byteIdx]))
	matchRunes := len([]rune(text[byteIdx : byteIdx+matchLen]))

	start := runeIdx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := runeIdx + matchRunes + snippetRadius
	if end > len(runes) {
		end = len(runes)
	}
	snippet := strings.ReplaceAll(string(runes[start:end]), "\n", " ")
	return strings.TrimSpace(snippet)
}

// AlertWarning renders the human-facing notice for a set of alerts, matching
// the review-required disclaimer shown before sending.
func AlertWarning(alerts []Alert) string {
	if len(alerts) == 0 {
		return ""
	}
	keywords := make([]string, 0, len(alerts))
	for _, a := range alerts {
		for _, ev := range a.Evidence {
			keywords = append(keywords, ev.Keyword)
			break
		}
	}
	return fmt.Sprintf("要配慮情報の可能性があります：%s 等のキーワードが含まれています。送信前に内容をご確認ください。",
		strings.Join(keywords, ", "))
}

// EmptyTextWarning is returned when no text layer could be extracted, which
// usually means a scanned image PDF.
const EmptyTextWarning = "テキストを抽出できませんでした。スキャンPDF（画像PDF）の可能性があります。内容をご確認の上、送信可否を判断してください。"
