package fetchbridge

// statusPhrases is the fixed status-text table exposed to callers. It is
// deliberately smaller than the full IANA registry: the upstream response
// contract names exactly these codes and maps everything else to "Unknown",
// so net/http.StatusText is not a drop-in.
var statusPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	429: "Too Many Requests",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
}

// StatusText returns the reason phrase for a status code, or "Unknown" for
// any code outside the fixed table. Total over all integers.
func StatusText(code int) string {
	if phrase, ok := statusPhrases[code]; ok {
		return phrase
	}
	return "Unknown"
}
