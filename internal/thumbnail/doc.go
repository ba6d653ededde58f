// Package thumbnail proxies video thumbnails from the platform's image CDN.
//
// The UI shows the thumbnail URL returned by /info through /thumbnail so the
// browser never contacts the CDN directly. Sources may be JPEG, PNG or WebP;
// output is always JPEG, downscaled to the requested width. Only a fixed set
// of CDN hosts is accepted, which keeps the proxy from being used to fetch
// arbitrary URLs.
package thumbnail
