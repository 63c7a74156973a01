package store

import (
	"testing"
	"time"

	"github.com/inkboard/inkboard/board"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func TestBuildTextBlockUpdate(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name      string
		patch     *board.TextBlockPatch
		wantQuery string
		wantArgs  int
	}{
		{
			name:      "empty patch only touches updated_at",
			patch:     &board.TextBlockPatch{},
			wantQuery: `UPDATE text_blocks SET updated_at = $1 WHERE id = $2`,
			wantArgs:  2,
		},
		{
			name:      "single field",
			patch:     &board.TextBlockPatch{Content: s("hi")},
			wantQuery: `UPDATE text_blocks SET updated_at = $1, content = $2 WHERE id = $3`,
			wantArgs:  3,
		},
		{
			name:      "position and size",
			patch:     &board.TextBlockPatch{X: f(1), Y: f(2), Width: f(3), Height: f(4)},
			wantQuery: `UPDATE text_blocks SET updated_at = $1, x = $2, y = $3, width = $4, height = $5 WHERE id = $6`,
			wantArgs:  6,
		},
		{
			name: "every field",
			patch: &board.TextBlockPatch{
				X: f(1), Y: f(2), Width: f(3), Height: f(4),
				Content: s("x"), FontSize: f(12), Color: s("#fff"), FontFamily: s("mono"),
			},
			wantQuery: `UPDATE text_blocks SET updated_at = $1, x = $2, y = $3, width = $4, height = $5, content = $6, font_size = $7, color = $8, font_family = $9 WHERE id = $10`,
			wantArgs:  10,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query, args := buildTextBlockUpdate("tb1", tc.patch, now)
			if query != tc.wantQuery {
				t.Errorf("query mismatch:\n got %s\nwant %s", query, tc.wantQuery)
			}
			if len(args) != tc.wantArgs {
				t.Errorf("got %d args, want %d", len(args), tc.wantArgs)
			}
			if args[len(args)-1] != "tb1" {
				t.Errorf("last arg should be the id, got %v", args[len(args)-1])
			}
		})
	}
}
