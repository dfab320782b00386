// Package tasks is the task store: a reducer taking a board and an event to a new board.
//
// # Events
//
//  1. [AddTask] : append a stone
//     - ignored when the trimmed text is blank
//     - ignored when the tier's capacity is already met, counting the bowl
//  2. [Reorder] : move a stone to just before another stone
//     - ignored when either id is missing or both are the same
//     - re-applying an already achieved order changes nothing
//  3. [Focus] : move a stone into the bowl
//     - a task already in the bowl goes back to the end of the stones
//  4. [CompleteFocused] : discard the bowl task, there is no archive
//
// [Reducer.Reduce] never mutates its input. Every change produces a fresh [models.Board], so no caller can observe
// the half-way state between removing a stone and placing it in the bowl.
//
// Capacity is only checked when adding. Moving existing tasks around can never exceed it.
package tasks
