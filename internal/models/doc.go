// Package models defines the domain entities shared by every layer of the application.
//
//   - [Task] : a pending item ("stone") with a stable id and non-blank text
//   - [Board] : the ordered stone list plus the single focus slot ("bowl")
//   - [User] : a local account used by the identity provider
//
// [Board] values are treated as immutable snapshots; the task reducer always returns a fresh one.
// Persistent entities implement [Model], and the [Repository] interface defines standard CRUD operations for database access.
package models
