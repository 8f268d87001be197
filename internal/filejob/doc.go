package filejob

// Package filejob implements monitor.Job for file operations (copy, move,
// delete) whose work runs on worker goroutines. The Service submits jobs,
// bounds how many run at once, registers them with the job monitor and lets
// the user pause, resume or stop them. The file operations themselves are
// supplied by callers as WorkFunc values.
