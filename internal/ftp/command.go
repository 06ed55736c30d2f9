package ftp

import (
	"errors"
	"strings"
)

// Verb is an FTP command verb in canonical upper-case form.
type Verb string

const (
	VerbUser   Verb = "USER"
	VerbPass   Verb = "PASS"
	VerbQuit   Verb = "QUIT"
	VerbLogout Verb = "LOGOUT"
	VerbList   Verb = "LIST"
	VerbPwd    Verb = "PWD"
	VerbCwd    Verb = "CWD"
	VerbRetr   Verb = "RETR"
	VerbStor   Verb = "STOR"
	VerbDel    Verb = "DEL"
	VerbPort   Verb = "PORT"
	VerbPasv   Verb = "PASV"
	VerbRax    Verb = "RAX"
)

// MaxCommandLength bounds a single command line. Longer lines are
// rejected before buffering the rest, keeping per-session memory flat.
const MaxCommandLength = 512

// Parse errors. Parsing never panics; it returns the command or one of
// these, which the dispatcher maps to its own reply code.
var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")
)

// Command is a parsed command line: a verb plus its raw trailing
// argument. How the argument is interpreted is up to each handler
// (PORT parses an address, CWD takes the string as a path).
type Command struct {
	Verb Verb
	Arg  string
}

// argRequired lists the verbs whose argument must be non-empty.
var argRequired = map[Verb]bool{
	VerbUser: true,
	VerbPass: true,
	VerbCwd:  true,
	VerbRetr: true,
	VerbStor: true,
	VerbDel:  true,
	VerbPort: true,
}

// Parse turns one command line (line terminator already stripped) into
// a Command. The verb is case-insensitive; the argument keeps its case.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)

	verbStr, arg, _ := strings.Cut(line, " ")
	verb := Verb(strings.ToUpper(verbStr))
	arg = strings.TrimSpace(arg)

	// "Q" is a convenience alias for QUIT.
	if verb == "Q" {
		verb = VerbQuit
	}

	switch verb {
	case VerbUser, VerbPass, VerbQuit, VerbLogout, VerbList, VerbPwd,
		VerbCwd, VerbRetr, VerbStor, VerbDel, VerbPort, VerbPasv, VerbRax:
	default:
		return Command{}, ErrUnknownCommand
	}

	if argRequired[verb] && arg == "" {
		return Command{}, ErrMissingArgument
	}

	return Command{Verb: verb, Arg: arg}, nil
}
