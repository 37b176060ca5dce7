package strx

import "testing"

func TestCoalesceTopicPrefix(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"", "growctl"}, "growctl"},
		{[]string{"lab/ch1", "growctl"}, "lab/ch1"},
		{[]string{"", "", "chamber-2"}, "chamber-2"},
		{[]string{"", ""}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := Coalesce(c.in...); got != c.want {
			t.Errorf("Coalesce(%q)=%q want %q", c.in, got, c.want)
		}
	}
}
