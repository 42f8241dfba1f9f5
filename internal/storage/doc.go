// Package storage wraps the S3-compatible object store behind a small
// interface: presigned PUT URLs for direct client uploads, server-side
// uploads for the proxy fallback, and best-effort deletion. It also owns
// object key derivation and public URL building.
package storage
