package mention

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "no mentions",
			body: "Discussed pricing with the team.",
			want: nil,
		},
		{
			name: "plain handle",
			body: "Thanks @bob, please follow up.",
			want: []string{"bob"},
		},
		{
			name: "email handle",
			body: "cc @bob@example.com on this",
			want: []string{"bob@example.com"},
		},
		{
			name: "email address is not a mention",
			body: "reach them at sales@example.com",
			want: nil,
		},
		{
			name: "trailing punctuation trimmed",
			body: "Ping @alice.",
			want: []string{"alice"},
		},
		{
			name: "duplicates collapse and sort",
			body: "@zoe and @alice and @zoe again",
			want: []string{"alice", "zoe"},
		},
		{
			name: "editor mention span",
			body: `<p>Hey <span class="mention" data-type="mention" data-id="bob@example.com" data-label="Bob">@Bob</span> see this</p>`,
			want: []string{"bob@example.com"},
		},
		{
			name: "span and handle together",
			body: `<span class="mention" data-id="carol@example.com">@Carol</span> and @dave`,
			want: []string{"carol@example.com", "dave"},
		},
		{
			name: "underscore handle",
			body: "ping @jane_doe please",
			want: []string{"jane_doe"},
		},
		{
			name: "underscores throughout",
			body: "x @jane_doe_x y",
			want: []string{"jane_doe_x"},
		},
		{
			name: "underscore email handle",
			body: "cc @jane_doe@example.com today",
			want: []string{"jane_doe@example.com"},
		},
		{
			name: "handle inside emphasis",
			body: "**@bob** owns this",
			want: []string{"bob"},
		},
		{
			name: "code span ignored",
			body: "Use `@Override` here, thanks @erin",
			want: []string{"erin"},
		},
		{
			name: "fenced code ignored",
			body: "Decorators:\n\n```\n@property\n```\n\nreviewed by @frank",
			want: []string{"frank"},
		},
		{
			name: "indented code ignored",
			body: "Notes:\n\n    @decorator\n\nby @gina",
			want: []string{"gina"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %v, want %v", got, tt.want)
			}
		})
	}
}
