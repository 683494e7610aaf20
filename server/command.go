package server

import "fmt"

// Command is a control message. It travels over the socket as one byte.
type Command byte

const (
	CmdNext     Command = 1 + iota // play another song now
	CmdExit                        // stop the daemon
	CmdSoftNext                    // play another song unless one is playing
	CmdUp                          // raise the rank of the current song
	CmdDown                        // lower the rank of the current song
	CmdQuit                        // shut the player down, then exit
	CmdRefresh                     // reload the playlist from its store
	CmdPing                        // does nothing
)

var commandNames = map[Command]string{
	CmdNext:     "next",
	CmdExit:     "exit",
	CmdSoftNext: "soft-next",
	CmdUp:       "up",
	CmdDown:     "down",
	CmdQuit:     "quit",
	CmdRefresh:  "refresh",
	CmdPing:     "ping",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", byte(c))
}

// ParseCommand looks a command up by name.
func ParseCommand(name string) (Command, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}
