package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamParser_Collect(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name: "content across chunks",
			stream: "data: {\"choices\":[{\"delta\":{\"content\":\"Widget \"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"C, 2,\"}}]}\n\n" +
				"data: [DONE]\n\n",
			want: "Widget C, 2,",
		},
		{
			name: "final chunk carries content",
			stream: "data: {\"choices\":[{\"delta\":{\"content\":\"A\"},\"finish_reason\":\"stop\"}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n",
			want: "A",
		},
		{
			name: "invalid json and comments are skipped",
			stream: ": keep-alive\n" +
				"data: {not json}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
				"data: [DONE]\n",
			want: "ok",
		},
		{
			name:   "non-streamed message body",
			stream: "data: {\"choices\":[{\"message\":{\"content\":\"full\"},\"finish_reason\":\"stop\"}]}\n",
			want:   "full",
		},
		{
			name:   "stream ends without done marker",
			stream: "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n",
			want:   "partial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStreamParser(strings.NewReader(tt.stream)).Collect()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
