package tournament

import "testing"

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{input: "Test XI", want: "test-xi"},
		{input: "  Royal Challengers Bangalore ", want: "royal-challengers-bangalore"},
		{input: "Punjab Kings (PBKS)", want: "punjab-kings-pbks"},
		{input: "A  -  B", want: "a-b"},
		{input: "", want: ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.input); got != tc.want {
			t.Fatalf("Slugify(%q)=%q want %q", tc.input, got, tc.want)
		}
	}
}

func TestInitials(t *testing.T) {
	t.Parallel()

	if got := Initials("Test XI"); got != "TX" {
		t.Fatalf("unexpected initials: %q", got)
	}
	if got := Initials("sunrisers hyderabad"); got != "SH" {
		t.Fatalf("unexpected initials: %q", got)
	}
}
