package proto

import "encoding/json"

type CommandType string

const (
	CommandTypeInvalid    CommandType = ""
	CommandTypeLogin      CommandType = "login"
	CommandTypeRefresh    CommandType = "refresh"
	CommandTypeLogout     CommandType = "logout"
	CommandTypeQueryRoles CommandType = "query_roles"
	CommandTypeUpdateRole CommandType = "update_role"
	CommandTypeQueryUsers CommandType = "query_users"
	CommandTypeUpdateUser CommandType = "update_user"
)

func (t CommandType) String() string {
	return string(t)
}

// Command is the inbound request envelope. The reference id is an opaque
// client-chosen value and is echoed back verbatim in the response. Payload
// holds the raw command document for a typed decode by the handler.
type Command struct {
	Type        CommandType
	ReferenceID string
	AuthToken   string
	Payload     json.RawMessage
}

// Response is the reply envelope. Exactly one response is produced per
// command, success or not.
type Response struct {
	ReferenceID string        `json:"referenceId"`
	Success     bool          `json:"success"`
	Payload     interface{}   `json:"payload,omitempty"`
	Errors      []ErrorDetail `json:"errors,omitempty"`
}

// Notification is the unsolicited push envelope. It carries no reference id
// because it is not correlated to any request.
type Notification struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ErrorDetail is one entry of a response error list. Field is only set for
// field-level storage or validation errors.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

// LoginCommand carries the credentials presented by the client. The
// empty-field check is done by the session manager so that it never reaches
// the user store, no validate tags here.
type LoginCommand struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshCommand struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutCommand struct {
	RefreshToken string `json:"refreshToken"`
}

type QueryRolesCommand struct{}

type UpdateRoleCommand struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type QueryUsersCommand struct{}

// UpdateUserCommand updates single profile fields. Nil pointers leave the
// field untouched.
type UpdateUserCommand struct {
	ID        string  `json:"id" validate:"required"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
}
