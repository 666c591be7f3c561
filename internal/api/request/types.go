package request

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterDevice struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// SendPush is the push fan-out input. At least one of user_ids or roles
// should be set; an empty audience yields an empty report.
type SendPush struct {
	UserIDs []string          `json:"user_ids" validate:"omitempty,dive,required"`
	Roles   []string          `json:"roles" validate:"omitempty,dive,required"`
	Title   string            `json:"title" validate:"required,max=200"`
	Body    string            `json:"body" validate:"required,max=2000"`
	Data    map[string]string `json:"data"`
}

type PostMessage struct {
	Body string `json:"body" validate:"required,max=4000"`
}
