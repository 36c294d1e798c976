package pagination

import (
	"net/url"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Params
		want Params
	}{
		{Params{}, Params{Page: 1, PageSize: DefaultPageSize}},
		{Params{Page: 3, PageSize: 10}, Params{Page: 3, PageSize: 10}},
		{Params{Page: -1, PageSize: 500}, Params{Page: 1, PageSize: MaxPageSize}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v want %+v", tc.in, got, tc.want)
		}
	}
}

func TestOffset(t *testing.T) {
	t.Parallel()

	if got := (Params{Page: 3, PageSize: 10}).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
}

func TestFromQuery(t *testing.T) {
	t.Parallel()

	q := url.Values{"page": {"2"}, "pageSize": {"abc"}}
	got := FromQuery(q)
	if got.Page != 2 || got.PageSize != DefaultPageSize {
		t.Fatalf("unexpected params %+v", got)
	}
}

func TestNewPageNeverNilData(t *testing.T) {
	t.Parallel()

	page := NewPage[int](nil, 0, Params{})
	if page.Data == nil {
		t.Fatalf("expected empty slice")
	}
	if page.Page != 1 || page.PageSize != DefaultPageSize {
		t.Fatalf("unexpected metadata %+v", page)
	}
}
