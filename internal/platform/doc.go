package platform

// Package platform contains OS and filesystem glue: expanding paths into the
// files a job will process, creating directories and opening folders in the
// system file manager.
