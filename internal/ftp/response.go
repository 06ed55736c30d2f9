package ftp

import "fmt"

// Reply is one control-connection response line: a 3-digit code and a
// human-readable text.
type Reply struct {
	Code int
	Text string
}

func (r Reply) String() string {
	return fmt.Sprintf("%d %s", r.Code, r.Text)
}

// Fixed replies.
var (
	replyWelcome     = Reply{220, "Welcome to the rax FTP server"}
	replyLoggedOut   = Reply{220, "Logged out"}
	replyGoodbye     = Reply{221, "Goodbye"}
	replyLoginOK     = Reply{230, "Login successful"}
	replyNeedPass    = Reply{331, "Password required"}
	replyPortOK      = Reply{200, "PORT command successful"}
	replyRax         = Reply{200, "Rax is the best"}
	replyNotLoggedIn = Reply{530, "Not logged in"}
	replyLoginFailed = Reply{530, "Login incorrect"}
	replyBadSequence = Reply{503, "Bad sequence of commands"}
	replyUnknownCmd  = Reply{500, "Syntax error, command unrecognized"}
	replyLineTooLong = Reply{500, "Command line too long"}
	replyBadArgs     = Reply{501, "Syntax error in parameters or arguments"}
	replyNoChannel   = Reply{425, "Use PORT or PASV first"}
	replyNoFreePorts = Reply{425, "No free data ports available"}
	replyDataFailed  = Reply{425, "Can't open data connection"}
	replyXferAborted = Reply{426, "Connection closed; transfer aborted"}
	replyXferDone    = Reply{226, "Transfer complete"}
)

// Parametrized replies.

func replyOpeningData(what string) Reply {
	return Reply{150, fmt.Sprintf("Opening data connection for %s", what)}
}

func replyPassiveMode(addr string) Reply {
	return Reply{227, fmt.Sprintf("Entering Passive Mode (%s)", addr)}
}

func replyCurrentDir(path string) Reply {
	return Reply{257, fmt.Sprintf("%q is the current directory", path)}
}

func replyDirChanged(path string) Reply {
	return Reply{250, fmt.Sprintf("Directory changed to %q", path)}
}

func replyDeleted(path string) Reply {
	return Reply{250, fmt.Sprintf("Deleted %q", path)}
}

func replyFileUnavailable(detail string) Reply {
	return Reply{550, detail}
}

func replyActionAborted(detail string) Reply {
	return Reply{451, fmt.Sprintf("Requested action aborted: %s", detail)}
}
