package sqlcomment

import (
	"strings"
	"sync"
	"testing"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"no comments", "SELECT 1", "SELECT 1"},
		{"block comment", "SELECT 1 /* comment */ FROM t", "SELECT 1  FROM t"},
		{"escaped quote in literal", `SELECT 'a\'b' -- x`, `SELECT 'a\'b' `},
		{"unterminated block comment", "SELECT 1 /* never closes", "SELECT 1 "},
		{"hash comment", "SELECT 1 # note\nSELECT 2", "SELECT 1 \nSELECT 2"},
		{"double dash comment", "SELECT 1 -- note\nSELECT 2", "SELECT 1 \nSELECT 2"},
		{"double slash comment", "SELECT 1 // note\nSELECT 2", "SELECT 1 \nSELECT 2"},
		{"line comment at eof", "SELECT 1 -- note", "SELECT 1 "},
		{"comment only", "-- nothing here", ""},
		{"hash only", "#", ""},
		{"dashes in literal", "SELECT '-- not a comment'", "SELECT '-- not a comment'"},
		{"spaced dashes in literal", "SELECT '- - not a comment'", "SELECT '- - not a comment'"},
		{"block markers in double quotes", `SELECT "/* x */" FROM t`, `SELECT "/* x */" FROM t`},
		{"hash in literal", "SELECT '#1' # real", "SELECT '#1' "},
		{"escaped backslash then quote", `SELECT 'a\\' -- x`, `SELECT 'a\\' `},
		{"three backslashes", `SELECT 'a\\\' -- still literal'`, `SELECT 'a\\\' -- still literal'`},
		{"doubled quote", "SELECT 'it''s' -- x", "SELECT 'it''s' "},
		{"other delimiter inside literal", `SELECT 'a" -- b' -- c`, `SELECT 'a" -- b' `},
		{"single quote inside double quotes", `SELECT "it's" -- c`, `SELECT "it's" `},
		{"unterminated literal", "SELECT 'abc -- x", "SELECT 'abc -- x"},
		{"escaped quote outside literal", `SELECT \'x -- y`, `SELECT \'x `},
		{"comment right after literal", "'a'--b", "'a'"},
		{"minus operator", "SELECT 1 - 2", "SELECT 1 - 2"},
		{"trailing minus", "SELECT 1-", "SELECT 1-"},
		{"division", "SELECT a/b FROM t", "SELECT a/b FROM t"},
		{"trailing slash", "SELECT 1/", "SELECT 1/"},
		{"empty block comment", "/**/SELECT", "SELECT"},
		{"slash right after block open", "/*/ still comment */y", "y"},
		{"extra stars", "SELECT 1 /* a **/ + 2", "SELECT 1  + 2"},
		{"block comments do not nest", "/* a /* b */ c */", " c */"},
		{"multi line block", "a/*\nb\n*/c", "ac"},
		{"crlf line comment", "SELECT 1 -- c\r\nSELECT 2", "SELECT 1 \nSELECT 2"},
		{"unicode", "SELECT 'héllo -- ü' -- ✓\nSELECT 'ß'", "SELECT 'héllo -- ü' \nSELECT 'ß'"},
		{"newline inside literal", "SELECT 'a\n-- b' -- c\n", "SELECT 'a\n-- b' \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strip(tt.input); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripKeepLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"multi line block", "a/*\nb\n*/c", "a\n\nc"},
		{"unterminated block", "SELECT 1 /* x\ny", "SELECT 1 \n"},
		{"line comments unchanged", "SELECT 1 -- x\nSELECT 2", "SELECT 1 \nSELECT 2"},
		{"literal untouched", "SELECT '/*\n*/'", "SELECT '/*\n*/'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripKeepLines(tt.input); got != tt.want {
				t.Errorf("StripKeepLines(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripKeepLines_PreservesLineCount(t *testing.T) {
	input := "SELECT 1; /* first\nsecond\nthird */ SELECT 2; -- tail\n# hash\nSELECT 3"
	got := StripKeepLines(input)
	if strings.Count(got, "\n") != strings.Count(input, "\n") {
		t.Errorf("StripKeepLines changed line count: got %q", got)
	}
}

func TestIsLiteralBoundary(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		pos   int
		delim byte
		want  bool
	}{
		{"bare quote", "'", 0, '\'', true},
		{"one backslash", `\'`, 1, '\'', false},
		{"two backslashes", `\\'`, 2, '\'', true},
		{"three backslashes", `\\\'`, 3, '\'', false},
		{"four backslashes", `\\\\'`, 4, '\'', true},
		{"backslash run not adjacent", `\a'`, 2, '\'', true},
		{"double quote", `x"`, 1, '"', true},
		{"escaped double quote", `x\"`, 2, '"', false},
		{"different delimiter", `'`, 0, '"', false},
		{"not a quote", "a", 0, '\'', false},
		{"negative position", "'", -1, '\'', false},
		{"position past end", "'", 1, '\'', false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLiteralBoundary(tt.text, tt.pos, tt.delim); got != tt.want {
				t.Errorf("isLiteralBoundary(%q, %d, %q) = %v, want %v", tt.text, tt.pos, tt.delim, got, tt.want)
			}
		})
	}
}

// corpus holds inputs without unterminated comments or literals.
var corpus = []string{
	"",
	"SELECT 1",
	"SELECT 1 /* c */ FROM t",
	"SELECT 'a\\'b' -- x\nFROM t",
	"SELECT \"x -- y\" # z\n",
	"INSERT INTO t VALUES ('//', '/*', '*/', '#', '--'); -- done",
	"a/*\nb\n*/c -- d\ne",
	"SELECT 'it''s' // trailing",
	"SELECT 1 - -2 / 3",
}

func TestStrip_Idempotent(t *testing.T) {
	for _, input := range corpus {
		once := Strip(input)
		if twice := Strip(once); twice != once {
			t.Errorf("Strip not idempotent for %q: once %q, twice %q", input, once, twice)
		}
		onceKeep := StripKeepLines(input)
		if twice := StripKeepLines(onceKeep); twice != onceKeep {
			t.Errorf("StripKeepLines not idempotent for %q: once %q, twice %q", input, onceKeep, twice)
		}
	}
}

func TestStrip_LiteralPreservation(t *testing.T) {
	contents := []string{
		"--",
		"//",
		"#",
		"/*",
		"*/",
		"/* -- // # */",
		"SELECT -- not a comment",
		"- - not a comment",
		"a\\'b -- escaped",
		"line1\n-- line2",
	}
	for _, delim := range []string{"'", `"`} {
		for _, content := range contents {
			if strings.Contains(content, delim) && delim == `"` {
				continue
			}
			literal := delim + content + delim
			if got := Strip(literal); got != literal {
				t.Errorf("Strip(%q) = %q, want literal unchanged", literal, got)
			}
		}
	}
}

func TestStrip_LineCommentsKeepNewlines(t *testing.T) {
	input := "SELECT 1 -- one\nSELECT 2 # two\nSELECT 3 // three\n-- four\n"
	got := Strip(input)
	if strings.Count(got, "\n") != strings.Count(input, "\n") {
		t.Errorf("Strip changed newline count: got %q", got)
	}
	want := "SELECT 1 \nSELECT 2 \nSELECT 3 \n\n"
	if got != want {
		t.Errorf("Strip(%q) = %q, want %q", input, got, want)
	}
}

func TestStrip_OutputIsSubsequence(t *testing.T) {
	for _, input := range corpus {
		got := Strip(input)
		i := 0
		for j := 0; j < len(input) && i < len(got); j++ {
			if input[j] == got[i] {
				i++
			}
		}
		if i != len(got) {
			t.Errorf("Strip(%q) = %q is not a subsequence of the input", input, got)
		}
	}
}

func TestStrip_InvalidUTF8PassesThrough(t *testing.T) {
	input := "SELECT '\xff\xfe' -- \xff"
	want := "SELECT '\xff\xfe' "
	if got := Strip(input); got != want {
		t.Errorf("Strip(%q) = %q, want %q", input, got, want)
	}
}

func TestStrip_Concurrent(t *testing.T) {
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan string, workers*len(corpus))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, input := range corpus {
				if Strip(input) != Strip(input) {
					errs <- input
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for input := range errs {
		t.Errorf("Strip(%q) was not deterministic under concurrency", input)
	}
}
