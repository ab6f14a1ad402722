// Package objectstore reads chain files from an S3-compatible bucket through
// the MinIO client. A search root of the form s3://bucket/prefix maps to a
// Source rooted at that prefix.
package objectstore
