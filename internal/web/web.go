package web

import (
	"embed"
	"io/fs"
	"net/http"

	"tubegate/internal/logging"
)

//go:embed static
var content embed.FS

// Static returns the embedded static assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}
	return sub
}

// StaticHandler serves the assets under the /static/ prefix.
func StaticHandler() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(Static())))
}

// IndexHandler serves the downloader page.
func IndexHandler() http.HandlerFunc {
	return pageHandler("index.html")
}

// LoginHandler serves the login page.
func LoginHandler() http.HandlerFunc {
	return pageHandler("login.html")
}

func pageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(Static(), name)
		if err != nil {
			logging.Error("failed to read embedded page %s: %v", name, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(data)
	}
}
