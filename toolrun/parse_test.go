package toolrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoCalls(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("no tool calls here"))
	assert.Empty(t, Parse("brackets [x] and parens (1, 2) but no marker"))
}

func TestParse_MultipleCallsInOrder(t *testing.T) {
	calls := Parse("TOOL[x](1, 2) TOOL[y](3)")
	require.Len(t, calls, 2)
	assert.Equal(t, "x", calls[0].Name)
	assert.Equal(t, []string{"1", "2"}, calls[0].Args)
	assert.Equal(t, "y", calls[1].Name)
	assert.Equal(t, []string{"3"}, calls[1].Args)
}

func TestParse_SurroundingProse(t *testing.T) {
	text := "I'll read the file first.\nTOOL[file_read](notes.txt)\nThen I'll summarize it."
	calls := Parse(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "file_read", calls[0].Name)
	assert.Equal(t, []string{"notes.txt"}, calls[0].Args)
	assert.Equal(t, "TOOL[file_read](notes.txt)", calls[0].Raw)
}

func TestParse_Quoting(t *testing.T) {
	tests := []struct {
		name string
		text string
		args []string
	}{
		{"double quotes strip", `TOOL[x]("hello")`, []string{"hello"}},
		{"single quotes strip", `TOOL[x]('hello')`, []string{"hello"}},
		{"comma inside quotes", `TOOL[file_write]("a.txt", "hello, world")`, []string{"a.txt", "hello, world"}},
		{"parens inside quotes", `TOOL[run_command]("echo (test)")`, []string{"echo (test)"}},
		{"whitespace trimmed", `TOOL[x](  a ,  b  )`, []string{"a", "b"}},
		{"escaped quote", `TOOL[x]("say \"hi\"")`, []string{`say "hi"`}},
		{"escaped newline", `TOOL[x]("line\nbreak")`, []string{"line\nbreak"}},
		{"mixed quoted and bare", `TOOL[x](plain, "quoted")`, []string{"plain", "quoted"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := Parse(tt.text)
			require.Len(t, calls, 1)
			assert.Equal(t, tt.args, calls[0].Args)
		})
	}
}

func TestParse_EmptyArgList(t *testing.T) {
	calls := Parse("TOOL[clipboard_paste]()")
	require.Len(t, calls, 1)
	assert.Equal(t, "clipboard_paste", calls[0].Name)
	assert.Empty(t, calls[0].Args)
}

func TestParse_NestedUnquotedParens(t *testing.T) {
	calls := Parse("TOOL[run_command](echo $(date), now)")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"echo $(date)", "now"}, calls[0].Args)
}

func TestParse_SkipsMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unbalanced parens", "TOOL[x](1, 2"},
		{"missing name", "TOOL[](1)"},
		{"missing paren", "TOOL[x] 1, 2"},
		{"unterminated quote", `TOOL[x]("open`},
		{"bad name char", "TOOL[a b](1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Parse(tt.text))
		})
	}
}

func TestParse_RecoversAfterMalformed(t *testing.T) {
	calls := Parse("TOOL[broken](1, 2 and then TOOL[good](3)")
	require.Len(t, calls, 1)
	assert.Equal(t, "good", calls[0].Name)
	assert.Equal(t, []string{"3"}, calls[0].Args)
}
