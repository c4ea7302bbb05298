package slug

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation", "Go 1.24: what's new?", "go-1-24-what-s-new"},
		{"diacritics", "Crème Brûlée à Paris", "creme-brulee-a-paris"},
		{"surrounding separators", "  --Tags--  ", "tags"},
		{"non latin kept", "日本 news", "日本-news"},
		{"cyrillic", "Иван Петров", "иван-петров"},
		{"cjk only", "李雷", "李雷"},
		{"devanagari marks kept", "नमस्ते दुनिया", "नमस्ते-दुनिया"},
		{"c plus plus", "C++", "c-plus-plus"},
		{"c sharp", "C#", "c-sharp"},
		{"hashtag", "#golang", "golang"},
		{"leading plus", "+1 votes", "1-votes"},
		{"symbols only", "!!!", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.in); got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMake_TruncatesAtWordBoundary(t *testing.T) {
	in := strings.Repeat("word ", 40)
	got := Make(in)

	if len(got) > MaxLength {
		t.Fatalf("len = %d, want <= %d", len(got), MaxLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug %q ends with a hyphen", got)
	}
	if !strings.HasSuffix(got, "word") {
		t.Errorf("slug %q cut inside a word", got)
	}
}

func TestMake_DistinctLanguageNames(t *testing.T) {
	seen := make(map[string]string)
	for _, name := range []string{"C", "C++", "C#", "F#", "Новости", "技术"} {
		s := Make(name)
		if s == "" {
			t.Errorf("Make(%q) is empty", name)
		}
		if other, ok := seen[s]; ok {
			t.Errorf("Make(%q) = Make(%q) = %q", name, other, s)
		}
		seen[s] = name
	}
}

func TestMake_TruncatesMultibyteByRunes(t *testing.T) {
	got := Make(strings.Repeat("я", MaxLength+20))
	if n := len([]rune(got)); n != MaxLength {
		t.Errorf("rune length = %d, want %d", n, MaxLength)
	}
	if !utf8.ValidString(got) {
		t.Errorf("slug %q is not valid UTF-8", got)
	}
}

func TestDisambiguate(t *testing.T) {
	a := Disambiguate("go", "Go!")
	if a != Disambiguate("go", "Go!") {
		t.Error("suffix is not stable")
	}
	if a == Disambiguate("go", "Go?") {
		t.Error("different names share a suffix")
	}
	if !strings.HasPrefix(a, "go-") || len(a) != len("go-")+suffixLength {
		t.Errorf("Disambiguate = %q", a)
	}
	if got := Disambiguate("", "!!!"); len(got) != suffixLength {
		t.Errorf("empty slug fallback = %q", got)
	}
	long := Disambiguate(strings.Repeat("a", MaxLength), "x")
	if n := len([]rune(long)); n > MaxLength {
		t.Errorf("rune length = %d, want <= %d", n, MaxLength)
	}
}
