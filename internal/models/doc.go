// Package models defines domain entities for the tasksync engine.
//
// The package contains two categories of types:
//
// 1. Local entities persisted in the SQLite store:
//   - [Account] : a remote service connection with health tracking
//   - [TaskList] : the local mirror of a remote task list
//   - [Task] : a hierarchical local task (Parent == 0 means root)
//   - [TaskLink] : the join record mapping a local task to its remote
//     identity within one list
//   - [Tag] : a named label resolved against remote categories
//
// 2. Constants shared by the engine and converters: the local priority
// scale, list access levels, and account types.
//
// The dirty predicate lives here: a link is dirty when the local task's
// modification date is newer than the link's lastSync watermark. Dirty
// tasks are never overwritten by incoming remote updates.
package models
