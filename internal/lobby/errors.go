package lobby

import "errors"

var (
	errRoomServerMissing = errors.New("no room server entry point found for this game package")
	errRoomServerFailed  = errors.New("failed to spawn room server process")
)
