package faq

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		out  string
	}{
		{name: "trims and lowers", in: "  Hello World  ", out: "helloworld"},
		{name: "removes punctuation", in: "What's, the distance?", out: "whatsthedistance"},
		{name: "folds full-width latin", in: "Ｈｅｌｌｏ　Ｗｏｒｌｄ", out: "helloworld"},
		{name: "removes full-width punctuation", in: "営業時間は？", out: "営業時間は"},
		{name: "removes japanese punctuation", in: "定休日は、いつですか。", out: "定休日はいつですか"},
		{name: "folds half-width katakana", in: "ｶﾀｶﾅ", out: "カタカナ"},
		{name: "empty stays empty", in: "", out: ""},
		{name: "symbols only", in: "！？・〜", out: ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.out {
			t.Fatalf("%s: expected %q got %q", tc.name, tc.out, got)
		}
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	in := "営業時間は　何時から？"
	first := Normalize(in)
	for i := 0; i < 3; i++ {
		if got := Normalize(in); got != first {
			t.Fatalf("expected stable output, got %q then %q", first, got)
		}
	}
}
