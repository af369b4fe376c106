package terminal

// ANSI SGR sequences.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"

	FgGreen = "\033[32m"
	FgCyan  = "\033[36m"
	FgGray  = "\033[37m"

	FgDarkGray    = "\033[1;30m"
	FgBrightRed   = "\033[1;31m"
	FgBrightGreen = "\033[1;32m"
	FgYellow      = "\033[1;33m"
	FgBrightCyan  = "\033[1;36m"
	FgWhite       = "\033[1;37m"
)

// ClearScreen sends the ANSI clear-screen sequence and homes the cursor.
func ClearScreen() string {
	return "\033[2J\033[1;1H"
}

// ClearLine clears the current line and returns the cursor to column 1.
func ClearLine() string {
	return "\033[2K\r"
}
