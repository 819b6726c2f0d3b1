package main

// Exit codes
const (
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (unreadable config, invalid schema file)
	ExitDataError   = 3 // Data error (export failure)
)
