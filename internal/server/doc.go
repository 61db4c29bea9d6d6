// Package server emulates the lapx cloud store over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Cloud Store Emulator
//
// [CloudHandler] answers the three multipart POST endpoints used by the sync client:
//
//   - last-modified: the upload time in whole seconds since the Unix epoch, or "Not Uploaded Before"
//   - upload: stores the "upload" file part, replying "OK"
//   - download: the stored bytes, or "F A Q!" when nothing was uploaded
//
// Files live in a [CloudStore] on an afero filesystem under <root>/<user id>/<project name>/<file name>.
// The `lapx cloud serve` command runs it with [Serve] so the client can be exercised without the real service.
package server
