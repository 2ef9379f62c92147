package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrUserNotFound     = errors.New("user not found")
	ErrTeamNotFound     = errors.New("team not found")
	ErrMatchNotFound    = errors.New("match not found")
	ErrStreamerNotFound = errors.New("streamer not found")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrVideoNotFound    = errors.New("video not found")
	ErrBookmarkNotFound = errors.New("bookmark not found")

	// Запрещенные действия
	ErrSelfStarForbidden  = errors.New("cannot star yourself")
	ErrSelfVoteForbidden  = errors.New("cannot vote on your own content")
	ErrPlaylistOwnerOnly  = errors.New("only the playlist owner can modify it")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrStarredFilterNoViewer = errors.New("starred filter requires a signed-in viewer")

	// Ошибки конфликтов
	ErrUserEmailConflict = errors.New("email address is already in use")

	// ErrCalendarInvariant сигнализирует о нарушении инварианта календаря:
	// декремент несуществующей записи. Транзакция откатывается, счетчики
	// не портятся.
	ErrCalendarInvariant = errors.New("calendar fan-out invariant violated")
)
