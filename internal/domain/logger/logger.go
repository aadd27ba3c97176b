// Package logger holds the program logger.
package logger

import "grabarr/internal/logging"

// Pl holds the global *ProgramLogger variable.
var Pl = logging.Nop()
