package prompt

import (
	"strings"
	"testing"
)

func TestFutureYears(t *testing.T) {
	latest := date("1998-05-06")
	got := FutureYears("compare 1997 with 2003 and 1999", latest)
	if len(got) != 2 || got[0] != 2003 || got[1] != 1999 {
		t.Fatalf("FutureYears() = %v", got)
	}
	if got := FutureYears("sales in 1998", latest); len(got) != 0 {
		t.Fatalf("FutureYears() = %v", got)
	}
	if got := FutureYears("order 19980 units", latest); len(got) != 0 {
		t.Fatalf("FutureYears() should respect word boundaries, got %v", got)
	}
}

func TestAnnotateSixMonthWindows(t *testing.T) {
	got := AnnotateRelativeTime("revenue in the last 6 months vs the 6 months before that", date("1998-05-06"))
	for _, want := range []string{
		"from 1997-11-06 to 1998-05-06",
		"from 1997-05-06 to 1997-11-05",
		"Do NOT use NOW()",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestAnnotateTwelveMonthsAndYears(t *testing.T) {
	got := AnnotateRelativeTime("Top customers over the previous 12 months compared to last year", date("1998-05-06"))
	if !strings.Contains(got, "last 12 months up to this date") {
		t.Fatalf("missing 12 month note: %q", got)
	}
	if !strings.Contains(got, "Treat 1998 as 'this year' and 1997 as 'last year'") {
		t.Fatalf("missing year note: %q", got)
	}
}

func TestAnnotateLeavesPlainQuestionsAlone(t *testing.T) {
	text := "top 5 products by price"
	if got := AnnotateRelativeTime(text, date("1998-05-06")); got != text {
		t.Fatalf("AnnotateRelativeTime() = %q", got)
	}
}
