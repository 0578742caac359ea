package district

import "testing"

func TestExtractDistrictExact(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		query string
		want  string
	}{
		{"quán ăn ngon ở Đống Đa", "Đống Đa"},
		{"chỗ chơi quận ba đình", "Ba Đình"},
		{"cafe Tây Hồ view hồ", "Tây Hồ"},
		{"ăn gì ở hai bà trưng", "Hai Bà Trưng"},
		{"quán ngon Hà Nội", ""},
	}

	for _, tt := range tests {
		if got := e.ExtractDistrict(tt.query); got != tt.want {
			t.Errorf("ExtractDistrict(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestExtractDistrictWithoutDiacritics(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		query string
		want  string
	}{
		{"quán ăn ở Dong Da", "Đống Đa"},
		{"nha hang o cau giay", "Cầu Giấy"},
		{"an toi o hoan kiem", "Hoàn Kiếm"},
		{"cho choi nam tu liem", "Nam Từ Liêm"},
	}

	for _, tt := range tests {
		if got := e.ExtractDistrict(tt.query); got != tt.want {
			t.Errorf("ExtractDistrict(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestExtractDistrictEmptyQuery(t *testing.T) {
	e := NewExtractor()
	if got := e.ExtractDistrict("   "); got != "" {
		t.Errorf("expected empty district, got %q", got)
	}
}

func TestIsNearMeEligible(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		query     string
		hasCoords bool
		want      bool
	}{
		{"quán ăn", true, true},
		{"nhà hàng gần đây", true, true},
		{"quán phở", true, false},   // specific dish beats proximity
		{"quán ăn", false, false},   // no coordinates
		{"cafe chill", true, false}, // vibe query
		{"", true, false},
	}

	for _, tt := range tests {
		if got := e.IsNearMeEligible(tt.query, tt.hasCoords); got != tt.want {
			t.Errorf("IsNearMeEligible(%q, %v) = %v, want %v", tt.query, tt.hasCoords, got, tt.want)
		}
	}
}

func TestFoldDiacritics(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Đống Đa", "Dong Da"},
		{"phở bò", "pho bo"},
		{"Hai Bà Trưng", "Hai Ba Trung"},
		{"already ascii", "already ascii"},
	}

	for _, tt := range tests {
		if got := FoldDiacritics(tt.in); got != tt.want {
			t.Errorf("FoldDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
