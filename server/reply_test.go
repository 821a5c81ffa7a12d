package server

import "testing"

func TestReplyEncode(t *testing.T) {
	tests := []struct {
		name string
		r    Reply
		want string
	}{
		{
			name: "suppressed",
			r:    NoReply(),
			want: "",
		},
		{
			name: "single line",
			r:    ReplyLine(CodeCommandOK, "Command okay."),
			want: "200 Command okay.\r\n",
		},
		{
			name: "multi line",
			r:    ReplyMultiLine(CodeSystemStatus, "Features:", " UTF8", "End"),
			want: "211-Features:\r\n211- UTF8\r\n211 End\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuotePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/home/user", `"/home/user"`},
		{`/has"quote`, `"/has""quote"`},
	}
	for _, tt := range tests {
		if got := quotePath(tt.in); got != tt.want {
			t.Errorf("quotePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItoa3(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "000"},
		{5, "005"},
		{200, "200"},
		{530, "530"},
	}
	for _, tt := range tests {
		if got := itoa3(tt.in); got != tt.want {
			t.Errorf("itoa3(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
