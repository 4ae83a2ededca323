package handlers

import (
	"io"
	"net"
	"net/http"
)

// Header names on the vendor-facing surface.
const (
	HeaderVendorSignature = "X-Vendor-Signature"
	HeaderVendorTimestamp = "X-Vendor-Timestamp"
)

// maxBodyBytes caps inbound request bodies (reports, notifications, files).
const maxBodyBytes = 32 << 20 // 32 MiB

// BoundaryRequest carries everything the trust-boundary pipeline needs,
// captured once where the transport is still visible. Core logic never
// touches *http.Request.
type BoundaryRequest struct {
	SourceIP  string
	Signature string
	Timestamp string
	RawBody   []byte
}

func newBoundaryRequest(r *http.Request) (*BoundaryRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &BoundaryRequest{
		SourceIP:  clientIP(r),
		Signature: r.Header.Get(HeaderVendorSignature),
		Timestamp: r.Header.Get(HeaderVendorTimestamp),
		RawBody:   body,
	}, nil
}

// clientIP resolves the caller address from the connection peer. Forwarding
// headers (X-Forwarded-For, X-Real-IP) are client-controlled and never
// consulted: an allowlist checked against a spoofable header is no
// allowlist at all.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
