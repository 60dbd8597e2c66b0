package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const waitingPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="1">
<title>Loading</title>
<style>
.spinner{width:48px;height:48px;margin:20vh auto;border:4px solid #ddd;border-top-color:#4f46e5;border-radius:50%;animation:spin 1s linear infinite}
@keyframes spin{to{transform:rotate(360deg)}}
</style>
</head>
<body><div class="spinner" role="status" aria-label="Loading"></div></body>
</html>
`

func writeWaiting(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"loading"}`))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(waitingPage))
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func withNext(location, from string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	q := u.Query()
	q.Set("next", from)
	u.RawQuery = q.Encode()
	return u.String()
}

// ReturnTo reads the "next" parameter set by a login redirect. Only local
// absolute paths are accepted; anything else yields fallback.
func ReturnTo(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if !isLocalPath(next) {
		return fallback
	}
	return next
}

func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
