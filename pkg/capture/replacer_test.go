package capture

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplacer_Replace(t *testing.T) {
	tests := []struct {
		name  string
		vars  map[string]string
		delim []string
		input string
		want  string
	}{
		{"single", map[string]string{"name": "alice"}, nil, "Hello ${name}", "Hello alice"},
		{"repeated", map[string]string{"x": "1"}, nil, "${x}-${x}-${x}", "1-1-1"},
		{"multiple vars", map[string]string{"a": "A", "b": "B"}, nil, "${a}${b}", "AB"},
		{"unknown left alone", map[string]string{"a": "A"}, nil, "${a} ${zzz}", "A ${zzz}"},
		{"custom delimiters", map[string]string{"id": "7"}, []string{"{{", "}}"}, "id={{id}} ${id}", "id=7 ${id}"},
		{"empty value", map[string]string{"gone": ""}, nil, "[${gone}]", "[]"},
		{"no placeholder", map[string]string{"a": "A"}, nil, "plain text", "plain text"},
		{"value not rescanned", map[string]string{"a": "${a}${a}"}, nil, "${a}", "${a}${a}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReplacer(tt.vars, tt.delim)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Replace(tt.input))
		})
	}
}

func TestReplacer_NoVariablesIsIdentity(t *testing.T) {
	r, err := NewReplacer(nil, nil)
	require.NoError(t, err)
	assert.False(t, r.HasVariables())
	assert.Equal(t, "${name} stays", r.Replace("${name} stays"))

	in := []string{"${a}", "b"}
	assert.Equal(t, in, r.ReplaceAll(in))

	var nilReplacer *Replacer
	assert.Equal(t, "${x}", nilReplacer.Replace("${x}"))
	assert.Nil(t, nilReplacer.ReplaceAll(nil))
}

func TestReplacer_ReplaceAll(t *testing.T) {
	r, err := NewReplacer(map[string]string{"v": "1"}, nil)
	require.NoError(t, err)

	in := []string{"a=${v}", "b", "${v}${v}"}
	out := r.ReplaceAll(in)
	assert.Equal(t, []string{"a=1", "b", "11"}, out)
	assert.Equal(t, "a=${v}", in[0], "input must not be modified")
}

func TestNewReplacer_Delimiters(t *testing.T) {
	_, err := NewReplacer(map[string]string{"a": "b"}, []string{"${"})
	assert.ErrorIs(t, err, ErrInvalidDelimiters)

	_, err = NewReplacer(map[string]string{"a": "b"}, []string{"<", ">", "!"})
	assert.ErrorIs(t, err, ErrInvalidDelimiters)

	r, err := NewReplacer(nil, []string{"<", ">"})
	require.NoError(t, err)
	start, end := r.Delimiters()
	assert.Equal(t, "<", start)
	assert.Equal(t, ">", end)
}

func TestNewReplacer_CopiesVariables(t *testing.T) {
	vars := map[string]string{"a": "1"}
	r, err := NewReplacer(vars, nil)
	require.NoError(t, err)

	vars["a"] = "changed"
	assert.Equal(t, "1", r.Replace("${a}"))

	got := r.Variables()
	got["a"] = "mutated"
	assert.Equal(t, "1", r.Replace("${a}"))
}

func TestReplacer_ConcurrentUse(t *testing.T) {
	r, err := NewReplacer(map[string]string{"n": "x"}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "x", r.Replace("${n}"))
			}
		}()
	}
	wg.Wait()
}
