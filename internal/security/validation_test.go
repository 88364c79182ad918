package security

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckPayload(t *testing.T) {
	t.Parallel()

	nested := func(n int) string {
		return `{"text":` + strings.Repeat("[", n) + strings.Repeat("]", n) + `}`
	}
	tests := []struct {
		name     string
		data     string
		maxBytes int
		maxDepth int
		wantErr  error
	}{
		{name: "empty", data: ""},
		{name: "flat message", data: `{"session_id":"s1","text":"list filesystems"}`},
		{name: "at size limit", data: strings.Repeat("a", 16), maxBytes: 16},
		{name: "over size limit", data: strings.Repeat("a", 17), maxBytes: 16, wantErr: ErrPayloadTooLarge},
		{name: "at depth limit", data: nested(3), maxDepth: 4},
		{name: "over depth limit", data: nested(4), maxDepth: 4, wantErr: ErrJSONTooDeep},
		{name: "brackets inside strings", data: `{"text":"[[[[[[[[{{{{{{"}`, maxDepth: 2},
		{name: "escaped quote keeps string open", data: `{"text":"\"[[[["}`, maxDepth: 1},
		{name: "default depth", data: nested(DefaultMaxJSONDepth), wantErr: ErrJSONTooDeep},
		{name: "unbalanced closers", data: `]]]]{}`, maxDepth: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := CheckPayload([]byte(tt.data), tt.maxBytes, tt.maxDepth)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckPayload() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func BenchmarkCheckPayload(b *testing.B) {
	data := []byte(`{"session_id":"s1","persona":"storage","text":"set quota for fileset proj1 on gpfs01 to 10T"}`)
	for b.Loop() {
		_ = CheckPayload(data, 0, 0)
	}
}
