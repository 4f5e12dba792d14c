package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2017-05-02", "20170502"},
		{"02-05-2017", "20170502"},
		{"02.05.2017", "20170502"},
		{"2017 / 05 / 02", "20170502"},
		{"20170502", "20170502"},
		{"02-May-2017", "20170502"},
		{"02-may-2017", "20170502"},
		{"2nd May 2017", "20170502"},
		{"May 2, 2017", "20170502"},
		{"not a date", ""},
		{"Dec 31", ""},
		{"12/31", ""},
		{"May 2nd", ""},
		{"1700000000", ""},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeDate(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	for _, in := range []string{"2017-05-02", "02-05-2017", "02-May-2017", "2nd May 2017", "20240131"} {
		once := NormalizeDate(in)
		assert.NotEmpty(t, once)
		assert.Equal(t, once, NormalizeDate(once), "input %q", in)
	}
}
