package consts

// Recommended permissions for files and directories grabarr might create.
const (
	PermsLogFile = 0o644
	PermsProgDir = 0o750
)
