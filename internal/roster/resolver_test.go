package roster_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/victornm/quizassign/internal/errors"
	"github.com/victornm/quizassign/internal/infra/memory"
	"github.com/victornm/quizassign/internal/roster"
)

func TestResolver_Resolve(t *testing.T) {
	dir := memory.NewDirectory().
		AddStudents("t1", "s1", "s2", "s3", "s4").
		AddStudents("t2", "x1").
		AddClass("t1", "c1", "s2", "s3", "stale").
		AddClass("t2", "c2", "x1", "s1")

	tests := map[string]struct {
		sel    roster.Selector
		want   []string
		reason errors.Reason
	}{
		"explicit list": {
			sel:  roster.Selector{StudentIDs: []string{"s1", "s3"}},
			want: []string{"s1", "s3"},
		},
		"foreign and unknown students are dropped": {
			sel:  roster.Selector{StudentIDs: []string{"s1", "x1", "nobody"}},
			want: []string{"s1"},
		},
		"class members not owned by the teacher are dropped": {
			sel:  roster.Selector{ClassID: "c1"},
			want: []string{"s2", "s3"},
		},
		"class of another teacher expands to nothing": {
			sel:  roster.Selector{ClassID: "c2"},
			want: nil,
		},
		"explicit and class overlap is deduplicated": {
			sel:  roster.Selector{StudentIDs: []string{"s3", "s1", "s3"}, ClassID: "c1"},
			want: []string{"s3", "s1", "s2"},
		},
		"all students": {
			sel:  roster.Selector{AllStudents: true},
			want: []string{"s1", "s2", "s3", "s4"},
		},
		"all students with explicit list": {
			sel:  roster.Selector{StudentIDs: []string{"s4"}, AllStudents: true},
			want: []string{"s4", "s1", "s2", "s3"},
		},
		"empty selector": {
			sel:    roster.Selector{},
			reason: errors.ReasonInvalidSelector,
		},
		"blank identifiers only": {
			sel:    roster.Selector{StudentIDs: []string{" ", ""}},
			reason: errors.ReasonInvalidSelector,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := roster.NewResolver(dir).Resolve(context.Background(), "t1", tt.sel)
			if tt.reason != "" {
				require.True(t, errors.HasReason(err, tt.reason), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
