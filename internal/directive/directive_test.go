package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filenames(ts []Target) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Filename
	}
	return out
}

func TestSequence_ExpandPrefix(t *testing.T) {
	got, err := Parse(In, []string{"--data_prefix_in=data_", "--data_num_in=3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"data_0", "data_1", "data_2"}, filenames(got))
	for _, tg := range got {
		assert.Equal(t, "data", tg.Key)
		assert.Equal(t, tg.Filename, tg.Resource)
		assert.True(t, tg.Data)
		assert.True(t, tg.Sequence)
	}
}

func TestSequence_ExplicitWins(t *testing.T) {
	got, err := Parse(In, []string{
		"--data_prefix_in=data_",
		"--data_in=a.csv,b.csv",
		"--data_num_in=3",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, filenames(got))
}

func TestSequence_ExpandDirect(t *testing.T) {
	s := Sequence{Key: "k", Explicit: []string{"a.csv", "b.csv"}, Prefix: "x", Count: 5, hasPrefix: true, hasCount: true}
	got, err := s.Expand()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, got)

	got, err = Sequence{Key: "k", hasPrefix: true, hasCount: true}.Expand()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParse_ImmediateRoutingAndSplit(t *testing.T) {
	got, err := Parse(In, []string{
		"--references_in=r1.tbl:r2.tbl,",
		"--k_neighbors=5",
		"--queries_in=q.tbl",
		"--metric_weights_in=w.tbl",
		"positional",
		"--result_out=ignored.tbl",
	})
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, []string{"r1.tbl", "r2.tbl", "q.tbl", "w.tbl"}, filenames(got))
	assert.True(t, got[0].Data)
	assert.True(t, got[2].Data)
	assert.False(t, got[3].Data)
	assert.Equal(t, "metric_weights", got[3].Key)
}

func TestParse_Out(t *testing.T) {
	got, err := Parse(Out, []string{
		"--references_in=r.tbl",
		"--distances_out=d.tbl",
		"--parts_prefix_out=part_",
		"--parts_num_out=2",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d.tbl", "part_0", "part_1"}, filenames(got))
}

func TestParse_SequencesSortedByKey(t *testing.T) {
	got, err := Parse(In, []string{
		"--zeta_prefix_in=z", "--zeta_num_in=1",
		"--alpha_prefix_in=a", "--alpha_num_in=1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a0", "z0"}, filenames(got))
}

func TestParse_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"non integer count", []string{"--data_prefix_in=d", "--data_num_in=three"}},
		{"negative count", []string{"--data_prefix_in=d", "--data_num_in=-1"}},
		{"count above int32", []string{"--references_prefix_in=data_", "--references_num_in=9223372036854775807"}},
		{"count just above int32", []string{"--data_prefix_in=d", "--data_num_in=2147483648"}},
		{"prefix without count", []string{"--data_prefix_in=d"}},
		{"count without prefix", []string{"--data_num_in=2"}},
		{"missing equals", []string{"--references_in"}},
		{"empty value", []string{"--references_in=,"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(In, tt.args)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrConfiguration)

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.NotEmpty(t, ce.Directive)
			assert.NotEmpty(t, ce.Reason)
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("a,b:c"))
	assert.Equal(t, []string{"a"}, Split("a,:"))
	assert.Nil(t, Split(",,"))
	assert.Equal(t, []string{"a", "b"}, Split("a,,b"))
}

func TestValue(t *testing.T) {
	args := []string{"--metric=weighted_l2", "leaf_size=8", "--metric_weights_in=w.tbl"}

	v, ok := Value(args, "metric")
	require.True(t, ok)
	assert.Equal(t, "weighted_l2", v)

	v, ok = Value(args, "leaf_size")
	require.True(t, ok)
	assert.Equal(t, "8", v)

	_, ok = Value(args, "missing")
	assert.False(t, ok)
}
