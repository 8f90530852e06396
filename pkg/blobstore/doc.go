// Package blobstore implements the content-addressed blob store shared,
// with an identical contract, by the client cache and the server store
// Content is hashed with SHA-256 after trailing zero bytes
// are stripped, so sparse regions dedupe onto one canonical empty blob.
package blobstore
