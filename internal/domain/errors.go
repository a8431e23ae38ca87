package domain

import "errors"

// Kind classifies a domain failure. The transport layer owns the mapping
// from Kind to a protocol status.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindDuplicate
	KindForbiddenWord
	KindReused
	KindPasswordMismatch
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindStorage
	KindDeleted
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindDuplicate:
		return "duplicate"
	case KindForbiddenWord:
		return "forbidden_word"
	case KindReused:
		return "reused"
	case KindPasswordMismatch:
		return "password_mismatch"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindDeleted:
		return "deleted"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a named failure condition with a stable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// User errors
var (
	ErrUserIDDuplicate    = newError(KindDuplicate, "USER_400_1", "user id is already in use")
	ErrNicknameDuplicate  = newError(KindDuplicate, "USER_400_2", "nickname is already in use")
	ErrUserIDNotValid     = newError(KindInvalid, "USER_400_4", "user id must be 2 to 16 characters")
	ErrPasswordMismatch   = newError(KindPasswordMismatch, "USER_400_5", "current password does not match")
	ErrPasswordNotValid   = newError(KindInvalid, "USER_400_6", "password must be 8 to 20 characters")
	ErrNicknameNotValid   = newError(KindInvalid, "USER_400_7", "nickname must be 2 to 20 characters")
	ErrLanguageNotValid   = newError(KindInvalid, "USER_400_8", "language is not supported")
	ErrNicknameNotAllowed = newError(KindInvalid, "USER_400_9", "nickname may only contain letters, digits, Hangul and CJK characters")
	ErrUserIDNotAllowed   = newError(KindInvalid, "USER_400_10", "user id may only contain letters and digits")
	ErrProfilePreset      = newError(KindInvalid, "USER_400_11", "profile image preset does not exist")
	ErrPasswordNoSymbol   = newError(KindInvalid, "SECURITY_400_1", "password must contain one of !@#$%^&*")
	ErrPasswordReused     = newError(KindReused, "SECURITY_409_1", "password was used within the last 6 months")
	ErrInvalidCredentials = newError(KindUnauthenticated, "USER_401_1", "invalid user id or password")
	ErrNotAuthenticated   = newError(KindUnauthenticated, "SECURITY_401_1", "authentication required")
	ErrUserNotFound       = newError(KindNotFound, "USER_404_1", "user not found")
	ErrUserAlreadyDeleted = newError(KindDeleted, "USER_409_1", "user is already deleted")
	ErrForbiddenWord      = newError(KindForbiddenWord, "USER_409_2", "user id or nickname contains a forbidden word")
	ErrInvalidToken       = newError(KindUnauthenticated, "TOKEN_401_1", "invalid or expired token")
)

// Storage errors
var (
	ErrExtensionNotAllowed = newError(KindStorage, "S3_400_1", "only jpg, jpeg, png, gif, mp3 and wav files are allowed")
	ErrFileTooLarge        = newError(KindStorage, "S3_400_2", "file exceeds the upload size limit")
	ErrUploadFailed        = newError(KindStorage, "S3_400_3", "upload failed")
	ErrPresignFailed       = newError(KindStorage, "S3_400_4", "could not generate a presigned url")
)

// Community errors
var (
	ErrPostNotFound         = newError(KindNotFound, "POST_404_1", "post not found")
	ErrCommentNotFound      = newError(KindNotFound, "COMMENT_404_1", "comment not found")
	ErrNotAuthor            = newError(KindForbidden, "POST_403_1", "only the author can perform this action")
	ErrBoardTypeNotValid    = newError(KindInvalid, "POST_400_1", "board type is not supported")
	ErrChatRoomNotFound     = newError(KindNotFound, "CHAT_404_1", "chat room not found")
	ErrNotParticipant       = newError(KindForbidden, "CHAT_403_1", "you are not a participant of this chat room")
	ErrCannotChatSelf       = newError(KindInvalid, "CHAT_400_1", "cannot open a chat room on your own post")
	ErrNotificationNotFound = newError(KindNotFound, "NOTIFICATION_404_1", "notification not found")
	ErrNotificationType     = newError(KindInvalid, "NOTIFICATION_400_1", "notification type is not supported")
)
