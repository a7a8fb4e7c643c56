package wire

import "errors"

// ErrInvalidJSON and ErrShortRead are sentinel wrapping errors used by Conn.
var (
	ErrInvalidJSON = errors.New("invalid json")
	ErrShortRead   = errors.New("short read")
)

// Error codes produced by the central, lobby, and room servers (spec §4.1, §7).
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidUsername     = "INVALID_USERNAME"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeUserAlreadyLoggedIn = "USER_ALREADY_LOGGED_IN"
	CodeNotLoggedIn         = "NOT_LOGGED_IN"
	CodeNotAuthenticated    = "NOT_AUTHENTICATED"
	CodeGameNotFound        = "GAME_NOT_FOUND"
	CodeGameOrVersionNF     = "GAME_OR_VERSION_NOT_FOUND"
	CodeGameExistsOtherAuth = "GAME_EXISTS_OTHER_AUTHOR"
	CodeInvalidPlayers      = "INVALID_PLAYERS"
	CodeUploadFailed        = "UPLOAD_FAILED"
	CodeUnzipFailed         = "UNZIP_FAILED"
	CodeLaunchFailed        = "LAUNCH_FAILED"
	CodeStopFailed          = "STOP_FAILED"
	CodeNotOwner            = "NOT_OWNER"
	CodeInvalidScore        = "INVALID_SCORE"
	CodeInvalidJSON         = "INVALID_JSON"
	CodeUnknownType         = "UNKNOWN_TYPE"
	CodeUnsupported         = "UNSUPPORTED"

	// Lobby-specific codes (spec §4.3).
	CodeAlreadyInRoom     = "ALREADY_IN_ROOM"
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeRoomNotJoinable   = "ROOM_NOT_JOINABLE"
	CodeRoomFull          = "ROOM_FULL"
	CodeRoomServerMissing = "ROOM_SERVER_MISSING"
	CodeRoomServerFailed  = "ROOM_SERVER_FAILED"
	CodeNotInRoom         = "NOT_IN_ROOM"
)
