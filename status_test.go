package fetchbridge

import "testing"

func TestStatusText(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "OK"},
		{201, "Created"},
		{204, "No Content"},
		{400, "Bad Request"},
		{401, "Unauthorized"},
		{403, "Forbidden"},
		{404, "Not Found"},
		{429, "Too Many Requests"},
		{500, "Internal Server Error"},
		{502, "Bad Gateway"},
		{503, "Service Unavailable"},
	}
	for _, tt := range tests {
		if got := StatusText(tt.code); got != tt.want {
			t.Errorf("StatusText(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestStatusText_UnknownCodes(t *testing.T) {
	// Every code outside the table maps to "Unknown", including ones
	// net/http knows a phrase for.
	for _, code := range []int{100, 101, 202, 301, 302, 304, 405, 418, 500 + 99, 0, -1, 1000} {
		if got := StatusText(code); got != "Unknown" {
			t.Errorf("StatusText(%d) = %q, want Unknown", code, got)
		}
	}
}
