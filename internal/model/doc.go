package model

// Package model defines domain data structures shared across the app: job
// lifecycle states, job kinds and progress snapshots. Snapshots are plain
// values so they can be handed to listeners and UI bindings without locking.
