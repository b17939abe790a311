package network

import (
	"crypto/md5" //nolint:gosec
	"encoding/base64"
)

// Digester computes the integrity header value of a fragment body.
type Digester interface {
	// Header returns the name of the header carrying the digest.
	Header() string
	Digest(body []byte) string
}

// MD5Digester produces base64 encoded MD5 sums, as expected in a Content-MD5 header.
type MD5Digester struct{}

// Header ...
func (MD5Digester) Header() string {
	return HeaderContentMD5
}

// Digest ...
func (MD5Digester) Digest(body []byte) string {
	sum := md5.Sum(body) //nolint:gosec
	return base64.StdEncoding.EncodeToString(sum[:])
}
