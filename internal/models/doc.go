// Package models defines the project, session and history types for lapx.
//
// The package contains three categories of types:
//
// 1. Project descriptor: the persisted .lap document
//   - [Project] : name, designer, chart/music paths and up to three background layers
//   - [LoadProject], [SaveProject], [NewProject], [ImportFolder] : descriptor lifecycle on an afero filesystem
//
// Background layers are kept contiguous from slot 0. With N layers, slot N-1 is rendered
// as the color background, N-2 as the gray background and N-3 as the linear highlight.
// [Project.AddLayer] and [Project.RemoveLayer] rotate slots so slot 0 always holds the
// most recently added image.
//
// 2. Session state: what a successful load produces
//   - [Session] : chart text, decoded backgrounds, music clip, video path and [LoadResult] flags
//   - [Workspace] : the single live project and session, guarded by a mutex and replaced atomically by [Workspace.Commit]
//   - [TransferKind], [TransferRequest] : what the cloud client moves
//
// 3. Persistent entities: sqlite-backed history rows
//   - [RecentProject] : a project that was opened successfully
//   - [TransferRecord] : one cloud upload or download
//
// Persistent entities implement the Model interface; the Repository[T] interface defines
// standard CRUD operations for database access.
package models
