package pagination

import "testing"

func TestNew_Clamps(t *testing.T) {
	tests := []struct {
		name              string
		page, limit       int
		wantPage, wantLim int
		wantOffset        int
	}{
		{"defaults", 0, 0, 1, DefaultLimit, 0},
		{"negative", -3, -1, 1, DefaultLimit, 0},
		{"over max", 2, 500, 2, MaxLimit, MaxLimit},
		{"third page", 3, 10, 3, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.limit)
			if p.Page != tt.wantPage || p.Limit != tt.wantLim || p.Offset != tt.wantOffset {
				t.Errorf("New(%d, %d) = %+v", tt.page, tt.limit, p)
			}
		})
	}
}

func TestGetMeta(t *testing.T) {
	meta := GetMeta(New(2, 10), 25)
	if meta.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", meta.TotalPages)
	}
	if !meta.HasNext || !meta.HasPrev {
		t.Errorf("page 2 of 3 should have next and prev: %+v", meta)
	}

	last := GetMeta(New(3, 10), 25)
	if last.HasNext {
		t.Error("last page should not have next")
	}

	empty := GetMeta(New(1, 10), 0)
	if empty.TotalPages != 0 || empty.HasNext || empty.HasPrev {
		t.Errorf("empty meta = %+v", empty)
	}
}
