// Package uploader drives the multi-variant image upload flow against a
// running content API: encode the sized renditions, push each blob through a
// presigned PUT (or the server-side fallback), then confirm the record.
package uploader
