package hospitals

import (
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeForMatch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"東京中央病院", "東京中央"},
		{"東京　中央 病院", "東京中央"},
		{"さくらクリニック", "さくら"},
		{"みなと診療所", "みなと"},
		{"県立医療センター", "県立"},
		{"海浜総合病院", "海浜"},
		{"ABC Medical Center", "abcmedicalcenter"},
		{"やまだ医院", "やまだ"},
	}
	for _, tt := range tests {
		if got := NormalizeForMatch(tt.in); got != tt.want {
			t.Errorf("NormalizeForMatch(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func master(names ...string) []*Hospital {
	out := make([]*Hospital, len(names))
	for i, n := range names {
		out[i] = &Hospital{ID: uuid.New(), Name: n}
	}
	return out
}

func TestFindCandidates_ExactMatchFirst(t *testing.T) {
	m := master("東京中央病院", "東京中央第二病院", "大阪市民病院")

	got := FindCandidates("東京中央病院", m, uuid.Nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Name != "東京中央病院" || got[0].Score != 100 {
		t.Errorf("expected exact match first with score 100, got %+v", got[0])
	}
	if got[1].Name != "東京中央第二病院" || got[1].Score != 50 {
		t.Errorf("expected containment match with score 50, got %+v", got[1])
	}
}

func TestFindCandidates_TargetContainsMaster(t *testing.T) {
	m := master("中央病院")
	got := FindCandidates("東京中央病院附属", m, uuid.Nil)
	if len(got) != 1 || got[0].Score != 70 {
		t.Fatalf("expected one score-70 candidate, got %+v", got)
	}
}

func TestFindCandidates_ExcludesOwnOrg(t *testing.T) {
	m := master("東京中央病院")
	got := FindCandidates("東京中央病院", m, m[0].ID)
	if len(got) != 0 {
		t.Errorf("own facility must be excluded, got %+v", got)
	}
}

func TestFindCandidates_ShortTargetMatchesNothing(t *testing.T) {
	m := master("東病院", "西病院")
	if got := FindCandidates("東", m, uuid.Nil); got != nil {
		t.Errorf("single-char target should match nothing, got %+v", got)
	}
	if got := FindCandidates("病院", m, uuid.Nil); got != nil {
		t.Errorf("suffix-only target normalizes to empty, got %+v", got)
	}
}

func TestFindCandidates_CapsAtThree(t *testing.T) {
	m := master("東京中央病院", "東京中央第二病院", "東京中央第三病院", "東京中央第四病院")
	got := FindCandidates("東京中央", m, uuid.Nil)
	if len(got) != 3 {
		t.Errorf("expected at most 3 candidates, got %d", len(got))
	}
}

func TestFindCandidates_SuffixVariantsStillMatch(t *testing.T) {
	m := master("さくらクリニック")
	got := FindCandidates("さくら医院", m, uuid.Nil)
	if len(got) != 1 || got[0].Score != 100 {
		t.Fatalf("suffix-stripped names should match exactly, got %+v", got)
	}
}
