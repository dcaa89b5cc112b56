// Package s3 fetches installer assets, such as the webmin package, from an
// S3-compatible object store.
//
// The public xTuple asset bucket is read anonymously. Credentials and a
// custom endpoint can be supplied for private mirrors.
package s3
