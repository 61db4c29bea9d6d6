// Package services talks to the remote cloud store that backs up and syncs charts.
//
// The protocol is three multipart POST endpoints, each taking the form fields
// UserId, FileName and ProjectName:
//
//   - last-modified: answers [NotUploadedBefore] or a decimal timestamp that becomes a
//     count of 100ns ticks since the Unix epoch once seven zero digits are appended
//   - upload: additionally carries the file bytes in the "upload" part
//   - download: answers [NotFoundBody] or the stored file
//
// [APIService] builds and posts the forms, [CloudClient] adds endpoint paths, request
// throttling (golang.org/x/time/rate) and response parsing, and [SyncClient] adds the
// live-session preconditions. Every SyncClient operation first derives a [Status]
// (device id, network reachability, loaded session, in that order) and returns a
// [StatusError] without touching the network when it is not [StatusReady]. Uploads are
// guarded by a weight-1 semaphore: a second upload while one is in flight is dropped.
package services
