// Package web embeds the browser UI: a downloader page, a login page and
// their static assets. The pages only talk to the JSON endpoints and the
// download link; no server-side templating is involved.
package web
